package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/acadops/assignment-api/internal/dto"
	"github.com/acadops/assignment-api/internal/service"
	"github.com/acadops/assignment-api/internal/utils"
)

// AssignmentHandler wires the assignment lifecycle endpoints.
type AssignmentHandler struct {
	service service.AssignmentService
	logger  zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service service.AssignmentService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches assignment routes to the router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/publish", h.publish)
	router.Post("/:id/archive", h.archive)
	router.Post("/:id/deactivate", h.deactivate)
	router.Patch("/:id/visibility", h.updateVisibility)
	router.Put("/:id/outcomes", h.setCOMapping)
	router.Post("/:id/rubrics", h.attachRubric)
	router.Put("/:id/evaluators", h.assignEvaluator)
	router.Get("/:id/statistics", h.statistics)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.service.Create(c.Context(), payload, actorFromContext(c))
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to create assignment")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	var payload dto.AssignmentListRequest
	if err := c.QueryParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	assignments, err := h.service.List(c.Context(), payload)
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to list assignments")
	}
	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	assignment, err := h.service.Get(c.Context(), id)
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to fetch assignment")
	}
	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.service.Update(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to update assignment")
	}
	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AssignmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(c.Context(), id, actorFromContext(c)); err != nil {
		return respondServiceError(h.logger, c, err, "failed to delete assignment")
	}
	return utils.SendSuccess(c, "assignment deleted", nil)
}

func (h *AssignmentHandler) publish(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	var payload dto.PublishRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	assignment, err := h.service.Publish(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to publish assignment")
	}
	return utils.SendSuccess(c, "assignment published", assignment)
}

func (h *AssignmentHandler) archive(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	var payload dto.ArchiveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.service.Archive(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to archive assignment")
	}
	return utils.SendSuccess(c, "assignment archived", assignment)
}

func (h *AssignmentHandler) deactivate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	var payload dto.ArchiveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.service.Deactivate(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to deactivate assignment")
	}
	return utils.SendSuccess(c, "assignment deactivated", assignment)
}

func (h *AssignmentHandler) updateVisibility(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	var payload dto.VisibilityUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.service.UpdateVisibility(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to update visibility")
	}
	return utils.SendSuccess(c, "visibility updated", assignment)
}

func (h *AssignmentHandler) setCOMapping(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	var payload dto.COMappingRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	mapping, err := h.service.SetCOMapping(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to map course outcome")
	}
	return utils.SendSuccess(c, "course outcome mapped", mapping)
}

func (h *AssignmentHandler) attachRubric(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	var payload dto.RubricAttachRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	attachment, err := h.service.AttachRubric(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to attach rubric")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "rubric attached", attachment)
}

func (h *AssignmentHandler) assignEvaluator(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	var payload dto.EvaluatorRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	evaluator, err := h.service.AssignEvaluator(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to assign evaluator")
	}
	return utils.SendSuccess(c, "evaluator assigned", evaluator)
}

func (h *AssignmentHandler) statistics(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	stats, err := h.service.Statistics(c.Context(), id)
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to compute statistics")
	}
	return utils.SendSuccess(c, "statistics computed", stats)
}
