package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/acadops/assignment-api/internal/dto"
	"github.com/acadops/assignment-api/internal/models"
	"github.com/acadops/assignment-api/internal/observability"
	"github.com/acadops/assignment-api/internal/repository"
	"github.com/acadops/assignment-api/internal/validation"
)

// LedgerService owns the append-only audit ledger and the snapshot history.
// Mutating services call Record and Snapshot inside their own transactions so
// ledger rows commit or roll back together with the change they describe.
type LedgerService interface {
	Record(ctx context.Context, tx *gorm.DB, entry *models.AuditEntry) error
	Announce(entry *models.AuditEntry)
	Snapshot(ctx context.Context, tx *gorm.DB, assignment models.Assignment, trigger, note string, actor Actor) (models.Snapshot, error)
	Rollback(ctx context.Context, assignmentID uint, payload dto.RollbackRequest, actor Actor) (dto.AssignmentResponse, error)
	ListAudit(ctx context.Context, payload dto.AuditListRequest) (dto.AuditListResponse, error)
	ListSnapshots(ctx context.Context, assignmentID uint) ([]dto.SnapshotResponse, error)
	GetSnapshot(ctx context.Context, assignmentID, snapshotID uint) (dto.SnapshotResponse, error)
}

type ledgerService struct {
	db          *gorm.DB
	nats        *nats.Conn
	natsSubject string
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

type ledgerEvent struct {
	Operation    string    `json:"operation"`
	AssignmentID uint      `json:"assignment_id"`
	OfferingID   uint      `json:"offering_id"`
	ActorID      string    `json:"actor_id"`
	ActorRole    string    `json:"actor_role"`
	Elevated     bool      `json:"elevated"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewLedgerService constructs the ledger service. The NATS connection is
// optional; without one, ledger events are simply not broadcast.
func NewLedgerService(db *gorm.DB, natsConn *nats.Conn, natsSubject string, logger zerolog.Logger) LedgerService {
	return &ledgerService{
		db:          db,
		nats:        natsConn,
		natsSubject: natsSubject,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "ledger_service").Logger(),
		now:         time.Now,
	}
}

func (s *ledgerService) Record(ctx context.Context, tx *gorm.DB, entry *models.AuditEntry) error {
	db := tx
	if db == nil {
		db = s.db
	}

	entry.Reason = strings.TrimSpace(s.sanitizer.Sanitize(entry.Reason))
	if entry.Source == "" {
		entry.Source = models.AuditSourceAPI
	}

	if err := repository.NewAuditLogRepository(db).Append(ctx, entry); err != nil {
		return err
	}

	// Inside a caller's transaction the append can still roll back, so the
	// caller calls Announce after commit. A direct append is already durable.
	if tx == nil {
		s.Announce(entry)
	}
	return nil
}

// Announce emits the metric and broadcast event for a committed ledger entry.
func (s *ledgerService) Announce(entry *models.AuditEntry) {
	observability.LedgerEntries().WithLabelValues(entry.Operation).Inc()
	s.broadcast(entry)
}

func (s *ledgerService) broadcast(entry *models.AuditEntry) {
	if s.nats == nil || s.natsSubject == "" {
		return
	}

	event := ledgerEvent{
		Operation:    entry.Operation,
		AssignmentID: entry.AssignmentID,
		OfferingID:   entry.OfferingID,
		ActorID:      entry.ActorID,
		ActorRole:    entry.ActorRole,
		Elevated:     entry.Elevated,
		OccurredAt:   s.now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode ledger event")
		return
	}
	if err := s.nats.Publish(s.natsSubject, payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", s.natsSubject).Msg("publish ledger event")
	}
}

func (s *ledgerService) Snapshot(ctx context.Context, tx *gorm.DB, assignment models.Assignment, trigger, note string, actor Actor) (models.Snapshot, error) {
	db := tx
	if db == nil {
		db = s.db
	}

	state, err := models.CaptureState(assignment).Encode()
	if err != nil {
		return models.Snapshot{}, err
	}

	snapshot := models.Snapshot{
		AssignmentID: assignment.ID,
		Trigger:      trigger,
		State:        state,
		Note:         strings.TrimSpace(s.sanitizer.Sanitize(note)),
		CreatedBy:    actor.ID,
	}
	if err := repository.NewSnapshotRepository(db).Create(ctx, &snapshot); err != nil {
		return models.Snapshot{}, err
	}
	return snapshot, nil
}

func (s *ledgerService) Rollback(ctx context.Context, assignmentID uint, payload dto.RollbackRequest, actor Actor) (dto.AssignmentResponse, error) {
	if err := validation.Authorize(validation.OpRollback, actor.Role).OrNil(); err != nil {
		return dto.AssignmentResponse{}, err
	}

	var restored models.Assignment
	var entry models.AuditEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		assignments := repository.NewAssignmentRepository(tx)
		snapshots := repository.NewSnapshotRepository(tx)

		current, err := assignments.GetByID(ctx, assignmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssignmentNotFound
			}
			return err
		}

		snapshot, err := snapshots.GetByID(ctx, payload.SnapshotID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSnapshotNotFound
			}
			return err
		}
		if snapshot.AssignmentID != assignmentID {
			return ErrSnapshotNotFound
		}

		target, err := models.DecodeState(snapshot.State)
		if err != nil {
			return err
		}

		// The state being replaced is snapshotted before anything changes,
		// so a rollback is itself reversible.
		if _, err := s.Snapshot(ctx, tx, current, models.SnapshotTriggerRollback, "state prior to rollback", actor); err != nil {
			return err
		}

		now := s.now()
		restored = target.Assignment
		restored.ID = current.ID
		restored.CreatedAt = current.CreatedAt
		restored.CreatedBy = current.CreatedBy
		restored.UpdatedAt = now
		restored.UpdatedBy = actor.ID
		if err := assignments.Update(ctx, &restored); err != nil {
			return err
		}
		if err := assignments.ReplaceChildren(ctx, current.ID, target); err != nil {
			return err
		}

		entry = models.AuditEntry{
			AssignmentID:  current.ID,
			OfferingID:    current.OfferingID,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Operation:     models.AuditOpRollback,
			Scope:         "assignment",
			Before:        auditState(current),
			After:         auditState(restored),
			Reason:        payload.Note,
			CorrelationID: actor.CorrelationID,
		}
		if err := s.Record(ctx, tx, &entry); err != nil {
			return err
		}

		restored, err = assignments.GetByID(ctx, current.ID)
		return err
	})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.Announce(&entry)
	s.logger.Info().
		Uint("assignment_id", assignmentID).
		Uint("snapshot_id", payload.SnapshotID).
		Str("actor", actor.ID).
		Msg("assignment rolled back")

	return dto.NewAssignmentResponse(restored), nil
}

func (s *ledgerService) ListAudit(ctx context.Context, payload dto.AuditListRequest) (dto.AuditListResponse, error) {
	filter := repository.AuditFilter{
		AssignmentID: payload.AssignmentID,
		OfferingID:   payload.OfferingID,
		ActorID:      payload.ActorID,
		Operation:    payload.Operation,
		Page:         payload.Page,
		PageSize:     payload.PageSize,
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultPageSize
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	entries, total, err := repository.NewAuditLogRepository(s.db).List(ctx, filter)
	if err != nil {
		return dto.AuditListResponse{}, err
	}

	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewAuditEntryResponse(entry))
	}

	return dto.AuditListResponse{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalItems: total,
			TotalPages: totalPages(total, filter.PageSize),
		},
	}, nil
}

func (s *ledgerService) ListSnapshots(ctx context.Context, assignmentID uint) ([]dto.SnapshotResponse, error) {
	snapshots, err := repository.NewSnapshotRepository(s.db).ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SnapshotResponse, 0, len(snapshots))
	for _, snapshot := range snapshots {
		responses = append(responses, dto.NewSnapshotResponse(snapshot, false))
	}
	return responses, nil
}

func (s *ledgerService) GetSnapshot(ctx context.Context, assignmentID, snapshotID uint) (dto.SnapshotResponse, error) {
	snapshot, err := repository.NewSnapshotRepository(s.db).GetByID(ctx, snapshotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SnapshotResponse{}, ErrSnapshotNotFound
		}
		return dto.SnapshotResponse{}, err
	}
	if snapshot.AssignmentID != assignmentID {
		return dto.SnapshotResponse{}, ErrSnapshotNotFound
	}
	return dto.NewSnapshotResponse(snapshot, true), nil
}

// auditState renders an assignment, children included, as the generic map
// shape stored in ledger before/after columns.
func auditState(assignment models.Assignment) datatypes.JSONMap {
	payload, err := json.Marshal(models.CaptureState(assignment))
	if err != nil {
		return nil
	}
	var state map[string]interface{}
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil
	}
	return state
}

const defaultPageSize = 20

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}
