package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/acadops/assignment-api/internal/dto"
	"github.com/acadops/assignment-api/internal/service"
	"github.com/acadops/assignment-api/internal/utils"
)

// ExtensionHandler wires per-student due-date extension endpoints.
type ExtensionHandler struct {
	service service.ExtensionService
	logger  zerolog.Logger
}

// NewExtensionHandler constructs the handler.
func NewExtensionHandler(service service.ExtensionService, logger zerolog.Logger) *ExtensionHandler {
	return &ExtensionHandler{
		service: service,
		logger:  logger.With().Str("component", "extension_handler").Logger(),
	}
}

// Register attaches extension routes under the assignment group.
func (h *ExtensionHandler) Register(assignments fiber.Router) {
	assignments.Post("/:id/extensions", h.request)
	assignments.Get("/:id/extensions", h.list)
	assignments.Post("/:id/extensions/:extensionID/decision", h.decide)
}

func (h *ExtensionHandler) request(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	var payload dto.ExtensionRequestPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	extension, err := h.service.Request(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to request extension")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "extension requested", extension)
}

func (h *ExtensionHandler) list(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	extensions, err := h.service.List(c.Context(), id)
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to list extensions")
	}
	return utils.SendSuccess(c, "extensions retrieved", extensions)
}

func (h *ExtensionHandler) decide(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	extensionID, err := parseUintParam(c, "extensionID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid extension identifier")
	}
	var payload dto.ExtensionDecisionPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	extension, err := h.service.Decide(c.Context(), id, extensionID, payload, actorFromContext(c))
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to decide extension")
	}
	return utils.SendSuccess(c, "extension decided", extension)
}
