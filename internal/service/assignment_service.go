package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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
	"github.com/acadops/assignment-api/internal/workflow"
)

// CacheInvalidator drops derived read-path caches after a mutation that
// changes what counts towards scaling.
type CacheInvalidator interface {
	InvalidateOffering(ctx context.Context, offeringID uint) error
}

// AssignmentService manages the assignment lifecycle: creation, edits,
// status and visibility transitions, child collections, and deletion. Every
// mutation commits atomically with its ledger entry.
type AssignmentService interface {
	Create(ctx context.Context, payload dto.AssignmentCreateRequest, actor Actor) (dto.AssignmentResponse, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	List(ctx context.Context, payload dto.AssignmentListRequest) (dto.AssignmentListResponse, error)
	Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest, actor Actor) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, id uint, actor Actor) error
	Publish(ctx context.Context, id uint, payload dto.PublishRequest, actor Actor) (dto.AssignmentResponse, error)
	Archive(ctx context.Context, id uint, payload dto.ArchiveRequest, actor Actor) (dto.AssignmentResponse, error)
	Deactivate(ctx context.Context, id uint, payload dto.ArchiveRequest, actor Actor) (dto.AssignmentResponse, error)
	UpdateVisibility(ctx context.Context, id uint, payload dto.VisibilityUpdateRequest, actor Actor) (dto.AssignmentResponse, error)
	SetCOMapping(ctx context.Context, id uint, payload dto.COMappingRequest, actor Actor) (dto.COMappingResponse, error)
	AttachRubric(ctx context.Context, id uint, payload dto.RubricAttachRequest, actor Actor) (dto.RubricAttachmentResponse, error)
	AssignEvaluator(ctx context.Context, id uint, payload dto.EvaluatorRequest, actor Actor) (dto.EvaluatorResponse, error)
	Statistics(ctx context.Context, id uint) (repository.AssignmentStatistics, error)
	FacultyLoad(ctx context.Context, offeringID uint) ([]repository.FacultyLoad, error)
}

type assignmentService struct {
	db          *gorm.DB
	repo        repository.AssignmentRepository
	offerings   repository.OfferingRepository
	stats       repository.StatisticsRepository
	validator   *validator.Validate
	ledger      LedgerService
	invalidator CacheInvalidator
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService constructs the assignment service. The cache
// invalidator is optional.
func NewAssignmentService(db *gorm.DB, offerings repository.OfferingRepository, validate *validator.Validate, ledger LedgerService, invalidator CacheInvalidator, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		db:          db,
		repo:        repository.NewAssignmentRepository(db),
		offerings:   offerings,
		stats:       repository.NewStatisticsRepository(db),
		validator:   validate,
		ledger:      ledger,
		invalidator: invalidator,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		now:         time.Now,
	}
}

func (s *assignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest, actor Actor) (dto.AssignmentResponse, error) {
	if err := validation.Authorize(validation.OpCreate, actor.Role).OrNil(); err != nil {
		return dto.AssignmentResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	dueAt, err := time.Parse(time.RFC3339, payload.DueAt)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	offering, err := s.offerings.GetByID(ctx, payload.OfferingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrOfferingNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	bucket := models.Bucket(payload.Bucket)
	exists, err := s.repo.NumberExists(ctx, offering.ID, bucket, payload.Number)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if exists {
		return dto.AssignmentResponse{}, validation.Violations{{
			Code:    validation.CodeDuplicateNumber,
			Field:   "number",
			Message: fmt.Sprintf("assignment %d already exists in the %s bucket of this offering", payload.Number, bucket),
		}}
	}

	assignment := models.Assignment{
		OfferingID:   offering.ID,
		AcademicYear: offering.AcademicYear,
		DegreeCode:   offering.DegreeCode,
		ProgramCode:  offering.ProgramCode,
		BranchCode:   offering.BranchCode,
		Year:         offering.Year,
		Term:         offering.Term,
		SubjectCode:  offering.SubjectCode,
		Number:       payload.Number,
		Title:        strings.TrimSpace(s.sanitizer.Sanitize(payload.Title)),
		Description:  strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		Bucket:       bucket,
		MaxMarks:     payload.MaxMarks,
		DueAt:        dueAt,
		Status:       models.StatusDraft,
		Visibility:   models.VisibilityHidden,
		CreatedBy:    actor.ID,
		UpdatedBy:    actor.ID,
	}
	assignment.ResultsPublishMode = models.ResultsModeMarksAndRubrics
	assignment.GraceMinutes = 15
	if payload.GraceMinutes != nil {
		assignment.GraceMinutes = *payload.GraceMinutes
	}
	if _, err := applyPolicies(&assignment, policyBlocks{
		SubmissionRules:  payload.SubmissionRules,
		LatePolicy:       payload.LatePolicy,
		ExtensionPolicy:  payload.ExtensionPolicy,
		GroupPolicy:      payload.GroupPolicy,
		MentoringPolicy:  payload.MentoringPolicy,
		PlagiarismPolicy: payload.PlagiarismPolicy,
		DropPolicy:       payload.DropPolicy,
	}, nil); err != nil {
		return dto.AssignmentResponse{}, err
	}

	var entry models.AuditEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := repository.NewAssignmentRepository(tx)
		if err := repo.Create(ctx, &assignment); err != nil {
			return err
		}
		if _, err := s.ledger.Snapshot(ctx, tx, assignment, models.SnapshotTriggerCreate, "initial draft", actor); err != nil {
			return err
		}
		entry = models.AuditEntry{
			AssignmentID:  assignment.ID,
			OfferingID:    assignment.OfferingID,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Operation:     models.AuditOpCreate,
			Scope:         "assignment",
			After:         auditState(assignment),
			CorrelationID: actor.CorrelationID,
		}
		return s.ledger.Record(ctx, tx, &entry)
	})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.ledger.Announce(&entry)
	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Uint("offering_id", assignment.OfferingID).
		Str("bucket", string(assignment.Bucket)).
		Int("number", assignment.Number).
		Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}
	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) List(ctx context.Context, payload dto.AssignmentListRequest) (dto.AssignmentListResponse, error) {
	filter := repository.AssignmentFilter{
		OfferingID:   payload.OfferingID,
		AcademicYear: payload.AcademicYear,
		DegreeCode:   payload.DegreeCode,
		Year:         payload.Year,
		Term:         payload.Term,
		SubjectCode:  payload.SubjectCode,
		Bucket:       models.Bucket(payload.Bucket),
		Status:       models.Status(payload.Status),
		Visibility:   models.Visibility(payload.Visibility),
		Search:       payload.Search,
		Page:         payload.Page,
		PageSize:     payload.PageSize,
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultPageSize
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	assignments, total, err := s.repo.ListWithFilter(ctx, filter)
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	return dto.AssignmentListResponse{
		Items: dto.NewAssignmentResponseSlice(assignments),
		Pagination: dto.PaginationMeta{
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalItems: total,
			TotalPages: totalPages(total, filter.PageSize),
		},
	}, nil
}

func (s *assignmentService) Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest, actor Actor) (dto.AssignmentResponse, error) {
	if err := validation.Authorize(validation.OpUpdate, actor.Role).OrNil(); err != nil {
		return dto.AssignmentResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}
	if assignment.IsTerminal() {
		return dto.AssignmentResponse{}, validation.Violations{{
			Code:    validation.CodeTransitionNotAllowed,
			Field:   "status",
			Message: fmt.Sprintf("a %s assignment cannot be edited", assignment.Status),
		}}
	}

	before := assignment
	var changedFields []string

	if payload.Title != nil {
		assignment.Title = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Title))
		changedFields = append(changedFields, "title")
	}
	if payload.Description != nil {
		assignment.Description = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Description))
		changedFields = append(changedFields, "description")
	}
	if payload.Bucket != nil && models.Bucket(*payload.Bucket) != assignment.Bucket {
		// Moving buckets lands the number in a different unique slot.
		bucket := models.Bucket(*payload.Bucket)
		exists, err := s.repo.NumberExists(ctx, assignment.OfferingID, bucket, assignment.Number)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		if exists {
			return dto.AssignmentResponse{}, validation.Violations{{
				Code:    validation.CodeDuplicateNumber,
				Field:   "bucket",
				Message: fmt.Sprintf("assignment %d already exists in the %s bucket of this offering", assignment.Number, bucket),
			}}
		}
		assignment.Bucket = bucket
		changedFields = append(changedFields, "bucket")
	}
	if payload.MaxMarks != nil && *payload.MaxMarks != assignment.MaxMarks {
		assignment.MaxMarks = *payload.MaxMarks
		changedFields = append(changedFields, "max_marks")
	}
	if payload.DueAt != nil {
		dueAt, err := time.Parse(time.RFC3339, *payload.DueAt)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		if !dueAt.Equal(assignment.DueAt) {
			assignment.DueAt = dueAt
			changedFields = append(changedFields, "due_at")
		}
	}
	if payload.GraceMinutes != nil {
		assignment.GraceMinutes = *payload.GraceMinutes
		changedFields = append(changedFields, "grace_minutes")
	}
	if payload.Excluded != nil && *payload.Excluded != assignment.Excluded {
		assignment.Excluded = *payload.Excluded
		changedFields = append(changedFields, "excluded")
	}
	policyChanges, err := applyPolicies(&assignment, policyBlocks{
		SubmissionRules:  payload.SubmissionRules,
		LatePolicy:       payload.LatePolicy,
		ExtensionPolicy:  payload.ExtensionPolicy,
		GroupPolicy:      payload.GroupPolicy,
		MentoringPolicy:  payload.MentoringPolicy,
		PlagiarismPolicy: payload.PlagiarismPolicy,
		DropPolicy:       payload.DropPolicy,
	}, &assignment)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	changedFields = append(changedFields, policyChanges...)

	if len(changedFields) == 0 {
		return dto.NewAssignmentResponse(assignment), nil
	}

	// Reason gating happens before any write so a rejected major edit leaves
	// no trace beyond the refusal itself.
	majorEdit := workflow.IsMajorEdit(assignment.Status, changedFields)
	reason := strings.TrimSpace(s.sanitizer.Sanitize(payload.Reason))
	if majorEdit {
		if err := validation.Authorize(validation.OpMajorEdit, actor.Role).OrNil(); err != nil {
			return dto.AssignmentResponse{}, err
		}
		if reason == "" {
			return dto.AssignmentResponse{}, ErrReasonRequired
		}
	}

	assignment.UpdatedBy = actor.ID
	var entry models.AuditEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := repository.NewAssignmentRepository(tx)
		if err := repo.Update(ctx, &assignment); err != nil {
			return err
		}
		if _, err := s.ledger.Snapshot(ctx, tx, assignment, models.SnapshotTriggerEdit, reason, actor); err != nil {
			return err
		}
		entry = models.AuditEntry{
			AssignmentID:  assignment.ID,
			OfferingID:    assignment.OfferingID,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Operation:     models.AuditOpUpdate,
			Scope:         strings.Join(changedFields, ","),
			Before:        auditState(before),
			After:         auditState(assignment),
			Reason:        reason,
			Elevated:      majorEdit,
			CorrelationID: actor.CorrelationID,
		}
		if err := s.ledger.Record(ctx, tx, &entry); err != nil {
			return err
		}
		if majorEdit {
			return repository.NewApprovalRepository(tx).Create(ctx, &models.Approval{
				AssignmentID: assignment.ID,
				Type:         models.ApprovalTypeMajorEdit,
				Reason:       reason,
				Status:       models.ApprovalStatusPending,
				RequestedBy:  actor.ID,
				RequestedAt:  s.now(),
			})
		}
		return nil
	})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.ledger.Announce(&entry)
	if assignment.Status == models.StatusPublished {
		s.invalidate(ctx, assignment.OfferingID)
	}

	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Strs("changed", changedFields).
		Bool("major_edit", majorEdit).
		Msg("assignment updated")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Delete(ctx context.Context, id uint, actor Actor) error {
	if err := validation.Authorize(validation.OpDelete, actor.Role).OrNil(); err != nil {
		return err
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	var violations validation.Violations
	if assignment.Status != models.StatusDraft {
		violations = append(violations, validation.Violation{
			Code:    validation.CodeDeleteRestricted,
			Field:   "status",
			Message: fmt.Sprintf("only draft assignments can be deleted, status is %s", assignment.Status),
		})
	}
	submissions, err := s.repo.CountSubmissions(ctx, id)
	if err != nil {
		return err
	}
	if submissions > 0 {
		violations = append(violations, validation.Violation{
			Code:    validation.CodeDeleteRestricted,
			Field:   "submissions",
			Message: fmt.Sprintf("%d submissions reference this assignment", submissions),
		})
	}
	marks, err := s.repo.CountMarks(ctx, id)
	if err != nil {
		return err
	}
	if marks > 0 {
		violations = append(violations, validation.Violation{
			Code:    validation.CodeDeleteRestricted,
			Field:   "marks",
			Message: fmt.Sprintf("%d marks reference this assignment", marks),
		})
	}
	if err := violations.OrNil(); err != nil {
		return err
	}

	entry := models.AuditEntry{
		AssignmentID:  assignment.ID,
		OfferingID:    assignment.OfferingID,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		Operation:     models.AuditOpDelete,
		Scope:         "assignment",
		Before:        auditState(assignment),
		CorrelationID: actor.CorrelationID,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// The ledger entry outlives the row it describes.
		if err := s.ledger.Record(ctx, tx, &entry); err != nil {
			return err
		}
		return repository.NewAssignmentRepository(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.ledger.Announce(&entry)
	s.logger.Info().Uint("assignment_id", id).Str("actor", actor.ID).Msg("assignment deleted")
	return nil
}

func (s *assignmentService) Publish(ctx context.Context, id uint, payload dto.PublishRequest, actor Actor) (dto.AssignmentResponse, error) {
	if err := validation.Authorize(validation.OpPublish, actor.Role).OrNil(); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}
	if !workflow.CanTransition(assignment.Status, models.StatusPublished) {
		return dto.AssignmentResponse{}, validation.Violations{{
			Code:    validation.CodeTransitionNotAllowed,
			Field:   "status",
			Message: fmt.Sprintf("cannot publish from status %s", assignment.Status),
		}}
	}

	// A failed readiness check refuses the publish outright; no state,
	// snapshot, or ledger row is written.
	if err := validation.PublishReadiness(assignment, s.now()).OrNil(); err != nil {
		return dto.AssignmentResponse{}, err
	}

	before := assignment
	reason := strings.TrimSpace(s.sanitizer.Sanitize(payload.Reason))

	var entry models.AuditEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := repository.NewAssignmentRepository(tx)
		moved, err := repo.TransitionStatus(ctx, id, assignment.Status, models.StatusPublished, actor.ID, s.now())
		if err != nil {
			return err
		}
		if !moved {
			return validation.Violations{{
				Code:    validation.CodeTransitionNotAllowed,
				Field:   "status",
				Message: "assignment status changed concurrently; publish aborted",
			}}
		}

		assignment, err = repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.ledger.Snapshot(ctx, tx, assignment, models.SnapshotTriggerPublish, reason, actor); err != nil {
			return err
		}
		entry = models.AuditEntry{
			AssignmentID:  assignment.ID,
			OfferingID:    assignment.OfferingID,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Operation:     models.AuditOpPublish,
			Scope:         "status",
			Before:        auditState(before),
			After:         auditState(assignment),
			Reason:        reason,
			CorrelationID: actor.CorrelationID,
		}
		return s.ledger.Record(ctx, tx, &entry)
	})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.ledger.Announce(&entry)
	s.invalidate(ctx, assignment.OfferingID)
	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Str("actor", actor.ID).
		Msg("assignment published")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Archive(ctx context.Context, id uint, payload dto.ArchiveRequest, actor Actor) (dto.AssignmentResponse, error) {
	return s.retire(ctx, id, payload, actor, validation.OpArchive, models.StatusArchived, models.AuditOpArchive)
}

func (s *assignmentService) Deactivate(ctx context.Context, id uint, payload dto.ArchiveRequest, actor Actor) (dto.AssignmentResponse, error) {
	return s.retire(ctx, id, payload, actor, validation.OpDeactivate, models.StatusDeactivated, models.AuditOpDeactivate)
}

// retire moves an assignment into a terminal status. Both terminal moves
// demand a reason.
func (s *assignmentService) retire(ctx context.Context, id uint, payload dto.ArchiveRequest, actor Actor, op validation.Operation, to models.Status, auditOp string) (dto.AssignmentResponse, error) {
	if err := validation.Authorize(op, actor.Role).OrNil(); err != nil {
		return dto.AssignmentResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}
	reason := strings.TrimSpace(s.sanitizer.Sanitize(payload.Reason))
	if reason == "" {
		return dto.AssignmentResponse{}, ErrReasonRequired
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}
	if !workflow.CanTransition(assignment.Status, to) {
		return dto.AssignmentResponse{}, validation.Violations{{
			Code:    validation.CodeTransitionNotAllowed,
			Field:   "status",
			Message: fmt.Sprintf("cannot move from %s to %s", assignment.Status, to),
		}}
	}

	before := assignment
	wasCounted := assignment.CountsTowardsScaling()

	var entry models.AuditEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := repository.NewAssignmentRepository(tx)
		moved, err := repo.TransitionStatus(ctx, id, assignment.Status, to, actor.ID, s.now())
		if err != nil {
			return err
		}
		if !moved {
			return validation.Violations{{
				Code:    validation.CodeTransitionNotAllowed,
				Field:   "status",
				Message: "assignment status changed concurrently; transition aborted",
			}}
		}
		assignment, err = repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		entry = models.AuditEntry{
			AssignmentID:  assignment.ID,
			OfferingID:    assignment.OfferingID,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Operation:     auditOp,
			Scope:         "status",
			Before:        auditState(before),
			After:         auditState(assignment),
			Reason:        reason,
			CorrelationID: actor.CorrelationID,
		}
		return s.ledger.Record(ctx, tx, &entry)
	})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.ledger.Announce(&entry)
	if wasCounted {
		s.invalidate(ctx, assignment.OfferingID)
	}
	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Str("status", string(to)).
		Msg("assignment retired")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) UpdateVisibility(ctx context.Context, id uint, payload dto.VisibilityUpdateRequest, actor Actor) (dto.AssignmentResponse, error) {
	if err := validation.Authorize(validation.OpVisibilityChange, actor.Role).OrNil(); err != nil {
		return dto.AssignmentResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	to := models.Visibility(payload.Visibility)
	if !workflow.CanAdvanceVisibility(assignment.Status, assignment.Visibility, to) {
		return dto.AssignmentResponse{}, validation.Violations{{
			Code:  validation.CodeTransitionNotAllowed,
			Field: "visibility",
			Message: fmt.Sprintf("visibility cannot move from %s to %s while status is %s",
				assignment.Visibility, to, assignment.Status),
		}}
	}

	from := assignment.Visibility
	assignment.Visibility = to
	assignment.UpdatedBy = actor.ID

	entry := models.AuditEntry{
		AssignmentID:  assignment.ID,
		OfferingID:    assignment.OfferingID,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		Operation:     models.AuditOpVisibilityChange,
		Scope:         "visibility",
		Before:        datatypes.JSONMap{"visibility": string(from)},
		After:         datatypes.JSONMap{"visibility": string(to)},
		CorrelationID: actor.CorrelationID,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewAssignmentRepository(tx).Update(ctx, &assignment); err != nil {
			return err
		}
		return s.ledger.Record(ctx, tx, &entry)
	})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.ledger.Announce(&entry)
	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("visibility advanced")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) SetCOMapping(ctx context.Context, id uint, payload dto.COMappingRequest, actor Actor) (dto.COMappingResponse, error) {
	if err := validation.Authorize(validation.OpMapOutcome, actor.Role).OrNil(); err != nil {
		return dto.COMappingResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.COMappingResponse{}, err
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.COMappingResponse{}, ErrAssignmentNotFound
		}
		return dto.COMappingResponse{}, err
	}
	if assignment.IsTerminal() {
		return dto.COMappingResponse{}, validation.Violations{{
			Code:    validation.CodeTransitionNotAllowed,
			Field:   "status",
			Message: fmt.Sprintf("a %s assignment cannot be edited", assignment.Status),
		}}
	}

	outcomes, err := s.offerings.ListOutcomes(ctx, assignment.OfferingID)
	if err != nil {
		return dto.COMappingResponse{}, err
	}
	known := false
	for _, outcome := range outcomes {
		if outcome.Code == payload.COCode {
			known = true
			break
		}
	}
	if !known {
		return dto.COMappingResponse{}, validation.Violations{{
			Code:    validation.CodeScopeMismatch,
			Field:   "co_code",
			Message: fmt.Sprintf("course outcome %s is not defined for this offering", payload.COCode),
		}}
	}

	mapping := models.COMapping{
		AssignmentID: assignment.ID,
		COCode:       payload.COCode,
		Correlation:  payload.Correlation,
	}
	if err := validation.CoMappings([]models.COMapping{mapping}, false).OrNil(); err != nil {
		return dto.COMappingResponse{}, err
	}

	var entry models.AuditEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewAssignmentRepository(tx).UpsertCOMapping(ctx, &mapping); err != nil {
			return err
		}
		entry = models.AuditEntry{
			AssignmentID:  assignment.ID,
			OfferingID:    assignment.OfferingID,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Operation:     models.AuditOpMapOutcome,
			Scope:         "co_mappings",
			After:         datatypes.JSONMap{"co_code": mapping.COCode, "correlation": mapping.Correlation},
			CorrelationID: actor.CorrelationID,
		}
		return s.ledger.Record(ctx, tx, &entry)
	})
	if err != nil {
		return dto.COMappingResponse{}, err
	}

	s.ledger.Announce(&entry)
	return dto.NewCOMappingResponse(mapping), nil
}

func (s *assignmentService) AttachRubric(ctx context.Context, id uint, payload dto.RubricAttachRequest, actor Actor) (dto.RubricAttachmentResponse, error) {
	if err := validation.Authorize(validation.OpAttachRubric, actor.Role).OrNil(); err != nil {
		return dto.RubricAttachmentResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.RubricAttachmentResponse{}, err
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RubricAttachmentResponse{}, ErrAssignmentNotFound
		}
		return dto.RubricAttachmentResponse{}, err
	}
	if assignment.IsTerminal() {
		return dto.RubricAttachmentResponse{}, validation.Violations{{
			Code:    validation.CodeTransitionNotAllowed,
			Field:   "status",
			Message: fmt.Sprintf("a %s assignment cannot be edited", assignment.Status),
		}}
	}

	rubric, err := s.offerings.GetRubric(ctx, payload.RubricID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RubricAttachmentResponse{}, ErrRubricNotFound
		}
		return dto.RubricAttachmentResponse{}, err
	}

	mode := models.RubricMode(payload.Mode)
	var violations validation.Violations
	violations = append(violations, validation.Scope(rubric.DegreeCode, assignment.DegreeCode)...)
	for _, existing := range assignment.Rubrics {
		if existing.Mode != mode {
			violations = append(violations, validation.Violation{
				Code:    validation.CodeWeightMismatch,
				Field:   "mode",
				Message: fmt.Sprintf("assignment already carries rubrics in mode %s", existing.Mode),
			})
			break
		}
	}
	if mode == models.RubricModeSingle {
		if len(assignment.Rubrics) > 0 {
			violations = append(violations, validation.Violation{
				Code:    validation.CodeWeightMismatch,
				Field:   "rubrics",
				Message: "single-rubric mode allows only one attachment",
			})
		}
		if payload.WeightPercent != models.FullWeightPercent {
			violations = append(violations, validation.Violation{
				Code:    validation.CodeWeightMismatch,
				Field:   "weight_percent",
				Message: "single-rubric mode requires weight 100",
			})
		}
	} else if payload.WeightPercent <= 0 {
		violations = append(violations, validation.Violation{
			Code:    validation.CodeWeightMismatch,
			Field:   "weight_percent",
			Message: "weighted mode requires a positive weight",
		})
	}
	if err := violations.OrNil(); err != nil {
		return dto.RubricAttachmentResponse{}, err
	}

	version := payload.RubricVersion
	if version == "" {
		version = rubric.Version
	}
	attachment := models.RubricAttachment{
		AssignmentID:  assignment.ID,
		RubricID:      rubric.ID,
		Mode:          mode,
		WeightPercent: payload.WeightPercent,
		RubricVersion: version,
	}

	var entry models.AuditEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewAssignmentRepository(tx).AttachRubric(ctx, &attachment); err != nil {
			return err
		}
		entry = models.AuditEntry{
			AssignmentID:  assignment.ID,
			OfferingID:    assignment.OfferingID,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Operation:     models.AuditOpAttachRubric,
			Scope:         "rubrics",
			After:         datatypes.JSONMap{"rubric_id": attachment.RubricID, "mode": string(attachment.Mode), "weight_percent": attachment.WeightPercent},
			CorrelationID: actor.CorrelationID,
		}
		return s.ledger.Record(ctx, tx, &entry)
	})
	if err != nil {
		return dto.RubricAttachmentResponse{}, err
	}

	s.ledger.Announce(&entry)
	return dto.NewRubricAttachmentResponse(attachment), nil
}

func (s *assignmentService) AssignEvaluator(ctx context.Context, id uint, payload dto.EvaluatorRequest, actor Actor) (dto.EvaluatorResponse, error) {
	if err := validation.Authorize(validation.OpAssignEvaluator, actor.Role).OrNil(); err != nil {
		return dto.EvaluatorResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.EvaluatorResponse{}, err
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluatorResponse{}, ErrAssignmentNotFound
		}
		return dto.EvaluatorResponse{}, err
	}

	evaluator := models.Evaluator{
		AssignmentID: assignment.ID,
		FacultyID:    payload.FacultyID,
		Role:         models.EvaluatorRoleEvaluator,
		CanEditMarks: true,
		AssignedAt:   s.now(),
		AssignedBy:   actor.ID,
	}
	if payload.Role != "" {
		evaluator.Role = payload.Role
	}
	if payload.CanEditMarks != nil {
		evaluator.CanEditMarks = *payload.CanEditMarks
	}
	if payload.CanModerate != nil {
		evaluator.CanModerate = *payload.CanModerate
	}

	var entry models.AuditEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewAssignmentRepository(tx).UpsertEvaluator(ctx, &evaluator); err != nil {
			return err
		}
		entry = models.AuditEntry{
			AssignmentID:  assignment.ID,
			OfferingID:    assignment.OfferingID,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Operation:     models.AuditOpAssignEvaluator,
			Scope:         "evaluators",
			After:         datatypes.JSONMap{"faculty_id": evaluator.FacultyID, "role": evaluator.Role},
			CorrelationID: actor.CorrelationID,
		}
		return s.ledger.Record(ctx, tx, &entry)
	})
	if err != nil {
		return dto.EvaluatorResponse{}, err
	}

	s.ledger.Announce(&entry)
	return dto.NewEvaluatorResponse(evaluator), nil
}

func (s *assignmentService) Statistics(ctx context.Context, id uint) (repository.AssignmentStatistics, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repository.AssignmentStatistics{}, ErrAssignmentNotFound
		}
		return repository.AssignmentStatistics{}, err
	}
	return s.stats.ForAssignment(ctx, id)
}

func (s *assignmentService) FacultyLoad(ctx context.Context, offeringID uint) ([]repository.FacultyLoad, error) {
	return s.stats.FacultyLoadByOffering(ctx, offeringID)
}

func (s *assignmentService) invalidate(ctx context.Context, offeringID uint) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.InvalidateOffering(ctx, offeringID); err != nil {
		s.logger.Warn().Err(err).Uint("offering_id", offeringID).Msg("invalidate scaling cache")
	}
}

// policyBlocks carries the raw policy JSON from a request payload.
type policyBlocks struct {
	SubmissionRules  json.RawMessage
	LatePolicy       json.RawMessage
	ExtensionPolicy  json.RawMessage
	GroupPolicy      json.RawMessage
	MentoringPolicy  json.RawMessage
	PlagiarismPolicy json.RawMessage
	DropPolicy       json.RawMessage
}

// applyPolicies decodes the supplied policy blocks onto the assignment. With
// a nil base every omitted block takes its default; with a base, omitted
// blocks keep the stored value. Returns the names of the policy fields that
// were supplied.
func applyPolicies(assignment *models.Assignment, blocks policyBlocks, base *models.Assignment) ([]string, error) {
	var changed []string

	if base == nil || len(blocks.SubmissionRules) > 0 {
		value, err := decodePolicy(blocks.SubmissionRules, models.DefaultSubmissionRules())
		if err != nil {
			return nil, fmt.Errorf("%w: submission_rules: %v", ErrMalformedPolicy, err)
		}
		assignment.SubmissionRules = value
		if len(blocks.SubmissionRules) > 0 {
			changed = append(changed, "submission_rules")
		}
	}
	if base == nil || len(blocks.LatePolicy) > 0 {
		value, err := decodePolicy(blocks.LatePolicy, models.DefaultLatePolicy())
		if err != nil {
			return nil, fmt.Errorf("%w: late_policy: %v", ErrMalformedPolicy, err)
		}
		assignment.LatePolicy = value
		if len(blocks.LatePolicy) > 0 {
			changed = append(changed, "late_policy")
		}
	}
	if base == nil || len(blocks.ExtensionPolicy) > 0 {
		value, err := decodePolicy(blocks.ExtensionPolicy, models.DefaultExtensionPolicy())
		if err != nil {
			return nil, fmt.Errorf("%w: extension_policy: %v", ErrMalformedPolicy, err)
		}
		assignment.ExtensionPolicy = value
		if len(blocks.ExtensionPolicy) > 0 {
			changed = append(changed, "extension_policy")
		}
	}
	if base == nil || len(blocks.GroupPolicy) > 0 {
		value, err := decodePolicy(blocks.GroupPolicy, models.DefaultGroupPolicy())
		if err != nil {
			return nil, fmt.Errorf("%w: group_policy: %v", ErrMalformedPolicy, err)
		}
		assignment.GroupPolicy = value
		if len(blocks.GroupPolicy) > 0 {
			changed = append(changed, "group_policy")
		}
	}
	if base == nil || len(blocks.MentoringPolicy) > 0 {
		value, err := decodePolicy(blocks.MentoringPolicy, models.DefaultMentoringPolicy())
		if err != nil {
			return nil, fmt.Errorf("%w: mentoring_policy: %v", ErrMalformedPolicy, err)
		}
		assignment.MentoringPolicy = value
		if len(blocks.MentoringPolicy) > 0 {
			changed = append(changed, "mentoring_policy")
		}
	}
	if base == nil || len(blocks.PlagiarismPolicy) > 0 {
		value, err := decodePolicy(blocks.PlagiarismPolicy, models.DefaultPlagiarismPolicy())
		if err != nil {
			return nil, fmt.Errorf("%w: plagiarism_policy: %v", ErrMalformedPolicy, err)
		}
		assignment.PlagiarismPolicy = value
		if len(blocks.PlagiarismPolicy) > 0 {
			changed = append(changed, "plagiarism_policy")
		}
	}
	if base == nil || len(blocks.DropPolicy) > 0 {
		value, err := decodePolicy(blocks.DropPolicy, models.DefaultDropPolicy())
		if err != nil {
			return nil, fmt.Errorf("%w: drop_policy: %v", ErrMalformedPolicy, err)
		}
		assignment.DropPolicy = value
		if len(blocks.DropPolicy) > 0 {
			changed = append(changed, "drop_policy")
		}
	}

	return changed, nil
}

// decodePolicy strictly decodes raw JSON over the fallback value, so omitted
// fields keep their defaults and unknown fields are rejected.
func decodePolicy[T any](raw json.RawMessage, fallback T) (datatypes.JSONType[T], error) {
	value := fallback
	if len(raw) > 0 {
		if err := models.DecodePolicy(raw, &value); err != nil {
			return datatypes.JSONType[T]{}, err
		}
	}
	return datatypes.NewJSONType(value), nil
}
