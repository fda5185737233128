package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/acadops/assignment-api/internal/dto"
	"github.com/acadops/assignment-api/internal/service"
	"github.com/acadops/assignment-api/internal/utils"
)

// LedgerHandler exposes the audit ledger and the snapshot history.
type LedgerHandler struct {
	service service.LedgerService
	logger  zerolog.Logger
}

// NewLedgerHandler constructs the handler.
func NewLedgerHandler(service service.LedgerService, logger zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: service,
		logger:  logger.With().Str("component", "ledger_handler").Logger(),
	}
}

// Register attaches audit and snapshot routes. The audit list mounts on its
// own group; snapshot routes nest under the assignment group.
func (h *LedgerHandler) Register(audit fiber.Router, assignments fiber.Router) {
	audit.Get("", h.listAudit)
	assignments.Get("/:id/snapshots", h.listSnapshots)
	assignments.Get("/:id/snapshots/:snapshotID", h.getSnapshot)
	assignments.Post("/:id/rollback", h.rollback)
}

func (h *LedgerHandler) listAudit(c *fiber.Ctx) error {
	var payload dto.AuditListRequest
	if err := c.QueryParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	entries, err := h.service.ListAudit(c.Context(), payload)
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to list audit entries")
	}
	return utils.SendSuccess(c, "audit entries retrieved", entries)
}

func (h *LedgerHandler) listSnapshots(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	snapshots, err := h.service.ListSnapshots(c.Context(), id)
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to list snapshots")
	}
	return utils.SendSuccess(c, "snapshots retrieved", snapshots)
}

func (h *LedgerHandler) getSnapshot(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	snapshotID, err := parseUintParam(c, "snapshotID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid snapshot identifier")
	}

	snapshot, err := h.service.GetSnapshot(c.Context(), id, snapshotID)
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to fetch snapshot")
	}
	return utils.SendSuccess(c, "snapshot retrieved", snapshot)
}

func (h *LedgerHandler) rollback(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	var payload dto.RollbackRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.service.Rollback(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		return respondServiceError(h.logger, c, err, "failed to roll back assignment")
	}
	return utils.SendSuccess(c, "assignment rolled back", assignment)
}
