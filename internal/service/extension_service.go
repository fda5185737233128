package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/acadops/assignment-api/internal/dto"
	"github.com/acadops/assignment-api/internal/models"
	"github.com/acadops/assignment-api/internal/repository"
	"github.com/acadops/assignment-api/internal/validation"
)

// ExtensionService handles per-student due-date extension requests subject to
// the assignment's extension policy.
type ExtensionService interface {
	Request(ctx context.Context, assignmentID uint, payload dto.ExtensionRequestPayload, actor Actor) (dto.ExtensionResponse, error)
	Decide(ctx context.Context, assignmentID, extensionID uint, payload dto.ExtensionDecisionPayload, actor Actor) (dto.ExtensionResponse, error)
	List(ctx context.Context, assignmentID uint) ([]dto.ExtensionResponse, error)
}

type extensionService struct {
	db          *gorm.DB
	assignments repository.AssignmentRepository
	extensions  repository.ExtensionRepository
	validator   *validator.Validate
	ledger      LedgerService
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewExtensionService constructs the extension service.
func NewExtensionService(db *gorm.DB, validate *validator.Validate, ledger LedgerService, logger zerolog.Logger) ExtensionService {
	return &extensionService{
		db:          db,
		assignments: repository.NewAssignmentRepository(db),
		extensions:  repository.NewExtensionRepository(db),
		validator:   validate,
		ledger:      ledger,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "extension_service").Logger(),
		now:         time.Now,
	}
}

func (s *extensionService) Request(ctx context.Context, assignmentID uint, payload dto.ExtensionRequestPayload, actor Actor) (dto.ExtensionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExtensionResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExtensionResponse{}, ErrAssignmentNotFound
		}
		return dto.ExtensionResponse{}, err
	}

	policy := assignment.ExtensionPolicy.Data()
	if !policy.Allowed {
		return dto.ExtensionResponse{}, ErrExtensionNotAllowed
	}

	reason := strings.TrimSpace(s.sanitizer.Sanitize(payload.Reason))
	if policy.RequireReason && reason == "" {
		return dto.ExtensionResponse{}, ErrReasonRequired
	}

	newDueAt, err := time.Parse(time.RFC3339, payload.NewDueAt)
	if err != nil {
		return dto.ExtensionResponse{}, err
	}
	if !newDueAt.After(assignment.DueAt) {
		return dto.ExtensionResponse{}, validation.Violations{{
			Code:    validation.CodePastDueDate,
			Field:   "new_due_at",
			Message: "extension must move the due date forward",
		}}
	}

	extension := models.Extension{
		AssignmentID:  assignment.ID,
		StudentRollNo: payload.StudentRollNo,
		NewDueAt:      newDueAt,
		Reason:        reason,
		Status:        models.ExtensionStatusPending,
		RequestedAt:   s.now(),
		RequestedBy:   actor.ID,
	}

	var entry models.AuditEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewExtensionRepository(tx).Create(ctx, &extension); err != nil {
			return err
		}
		entry = models.AuditEntry{
			AssignmentID:  assignment.ID,
			OfferingID:    assignment.OfferingID,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Operation:     models.AuditOpExtensionRequest,
			Scope:         "extensions",
			After:         datatypes.JSONMap{"student_roll_no": extension.StudentRollNo, "new_due_at": extension.NewDueAt},
			Reason:        reason,
			CorrelationID: actor.CorrelationID,
		}
		return s.ledger.Record(ctx, tx, &entry)
	})
	if err != nil {
		return dto.ExtensionResponse{}, err
	}

	s.ledger.Announce(&entry)
	return dto.NewExtensionResponse(extension), nil
}

func (s *extensionService) Decide(ctx context.Context, assignmentID, extensionID uint, payload dto.ExtensionDecisionPayload, actor Actor) (dto.ExtensionResponse, error) {
	if err := validation.Authorize(validation.OpDecideExtension, actor.Role).OrNil(); err != nil {
		return dto.ExtensionResponse{}, err
	}

	extension, err := s.extensions.GetByID(ctx, extensionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExtensionResponse{}, ErrExtensionNotFound
		}
		return dto.ExtensionResponse{}, err
	}
	if extension.AssignmentID != assignmentID {
		return dto.ExtensionResponse{}, ErrExtensionNotFound
	}
	if extension.Status != models.ExtensionStatusPending {
		return dto.ExtensionResponse{}, ErrExtensionAlreadyDecided
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return dto.ExtensionResponse{}, err
	}

	decidedAt := s.now()
	extension.Status = models.ExtensionStatusDenied
	if payload.Approve {
		extension.Status = models.ExtensionStatusApproved
	}
	extension.DecidedBy = actor.ID
	extension.DecidedAt = &decidedAt
	extension.DecisionNote = strings.TrimSpace(s.sanitizer.Sanitize(payload.Note))

	var entry models.AuditEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewExtensionRepository(tx).Update(ctx, &extension); err != nil {
			return err
		}
		entry = models.AuditEntry{
			AssignmentID:  assignment.ID,
			OfferingID:    assignment.OfferingID,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Operation:     models.AuditOpExtensionDecide,
			Scope:         "extensions",
			After:         datatypes.JSONMap{"extension_id": extension.ID, "status": extension.Status},
			Reason:        extension.DecisionNote,
			CorrelationID: actor.CorrelationID,
		}
		return s.ledger.Record(ctx, tx, &entry)
	})
	if err != nil {
		return dto.ExtensionResponse{}, err
	}

	s.ledger.Announce(&entry)
	s.logger.Info().
		Uint("extension_id", extension.ID).
		Str("status", extension.Status).
		Msg("extension decided")

	return dto.NewExtensionResponse(extension), nil
}

func (s *extensionService) List(ctx context.Context, assignmentID uint) ([]dto.ExtensionResponse, error) {
	extensions, err := s.extensions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	responses := make([]dto.ExtensionResponse, 0, len(extensions))
	for _, extension := range extensions {
		responses = append(responses, dto.NewExtensionResponse(extension))
	}
	return responses, nil
}
