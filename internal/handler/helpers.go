package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/acadops/assignment-api/internal/middleware"
	"github.com/acadops/assignment-api/internal/service"
	"github.com/acadops/assignment-api/internal/utils"
	"github.com/acadops/assignment-api/internal/validation"
)

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(c.Params(key)), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	actor := service.Actor{CorrelationID: middleware.GetCorrelationID(c)}
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(string); ok {
			actor.ID = id
		}
	}
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			actor.Role = role
		}
	}
	return actor
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// violationStatus picks the HTTP status for a set of rule violations.
// Authorization failures map to 403, conflicts with existing state to 409,
// and everything else to 422.
func violationStatus(violations validation.Violations) int {
	switch {
	case violations.Has(validation.CodePermissionDenied):
		return fiber.StatusForbidden
	case violations.Has(validation.CodeDuplicateNumber),
		violations.Has(validation.CodeDeleteRestricted),
		violations.Has(validation.CodeTransitionNotAllowed):
		return fiber.StatusConflict
	default:
		return fiber.StatusUnprocessableEntity
	}
}

// respondServiceError maps a service-layer failure onto the response
// envelope. Unexpected failures are logged with the request correlation and
// surfaced as a generic 500.
func respondServiceError(logger zerolog.Logger, c *fiber.Ctx, err error, fallback string) error {
	var violations validation.Violations
	if errors.As(err, &violations) {
		return utils.SendErrorWithDetails(c, violationStatus(violations), "validation failed", violations)
	}

	var parseErr *time.ParseError
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrOfferingNotFound),
		errors.Is(err, service.ErrRubricNotFound),
		errors.Is(err, service.ErrSnapshotNotFound),
		errors.Is(err, service.ErrExtensionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrExtensionAlreadyDecided),
		errors.Is(err, service.ErrExtensionNotAllowed):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrReasonRequired),
		errors.Is(err, service.ErrMalformedPolicy),
		errors.As(err, &parseErr),
		isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
