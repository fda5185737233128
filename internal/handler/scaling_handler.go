package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/acadops/assignment-api/internal/models"
	"github.com/acadops/assignment-api/internal/service"
	"github.com/acadops/assignment-api/internal/utils"
)

// ScalingHandler exposes the derived per-bucket scaled marks.
type ScalingHandler struct {
	service service.ScalingService
	logger  zerolog.Logger
}

// NewScalingHandler constructs the handler.
func NewScalingHandler(service service.ScalingService, logger zerolog.Logger) *ScalingHandler {
	return &ScalingHandler{
		service: service,
		logger:  logger.With().Str("component", "scaling_handler").Logger(),
	}
}

// Register attaches scaling routes to the offerings group.
func (h *ScalingHandler) Register(router fiber.Router) {
	router.Get("/:offeringID/buckets/:bucket/scaled-marks", h.scaledMarks)
	router.Get("/:offeringID/buckets/:bucket/factor", h.factor)
}

func parseBucket(c *fiber.Ctx) (models.Bucket, bool) {
	bucket := models.Bucket(c.Params("bucket"))
	return bucket, bucket == models.BucketInternal || bucket == models.BucketExternal
}

func (h *ScalingHandler) scaledMarks(c *fiber.Ctx) error {
	offeringID, err := parseUintParam(c, "offeringID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offering identifier")
	}
	bucket, ok := parseBucket(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "bucket must be Internal or External")
	}

	result, err := h.service.ScaledMarks(c.Context(), offeringID, bucket)
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to compute scaled marks")
	}
	return utils.SendSuccess(c, "scaled marks computed", result)
}

func (h *ScalingHandler) factor(c *fiber.Ctx) error {
	offeringID, err := parseUintParam(c, "offeringID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offering identifier")
	}
	bucket, ok := parseBucket(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "bucket must be Internal or External")
	}

	factor, err := h.service.Factor(c.Context(), offeringID, bucket)
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to compute scaling factor")
	}
	return utils.SendSuccess(c, "scaling factor computed", factor)
}
