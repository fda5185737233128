package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/acadops/assignment-api/internal/models"
)

// AssignmentFilter describes the list filter set plus pagination.
type AssignmentFilter struct {
	OfferingID   uint
	AcademicYear string
	DegreeCode   string
	Year         int
	Term         int
	SubjectCode  string
	Bucket       models.Bucket
	Status       models.Status
	Visibility   models.Visibility
	Search       string
	Page         int
	PageSize     int
}

// AssignmentRepository defines persistence operations for assignments and the
// child collections they own.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id uint) error
	ListWithFilter(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error)
	NumberExists(ctx context.Context, offeringID uint, bucket models.Bucket, number int) (bool, error)
	// TransitionStatus performs a checked-then-set status move: the update
	// applies only if the row still holds the expected current status, so two
	// concurrent publishers cannot both succeed from stale state.
	TransitionStatus(ctx context.Context, id uint, from, to models.Status, actor string, at time.Time) (bool, error)
	SumPublishedRawMax(ctx context.Context, offeringID uint, bucket models.Bucket) (float64, error)
	CountSubmissions(ctx context.Context, id uint) (int64, error)
	CountMarks(ctx context.Context, id uint) (int64, error)
	UpsertCOMapping(ctx context.Context, mapping *models.COMapping) error
	AttachRubric(ctx context.Context, attachment *models.RubricAttachment) error
	UpsertEvaluator(ctx context.Context, evaluator *models.Evaluator) error
	ReplaceChildren(ctx context.Context, id uint, state models.AssignmentState) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.WithContext(ctx).
		Preload("COMappings").
		Preload("Rubrics", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Preload("Evaluators").
		First(&assignment, id).Error
	if err != nil {
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Omit("COMappings", "Rubrics", "Evaluators", "Groups").Save(assignment).Error
}

func (r *assignmentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Select("COMappings", "Rubrics", "Evaluators", "Groups").Delete(&models.Assignment{ID: id})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *assignmentRepository) ListWithFilter(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{})

	if filter.OfferingID > 0 {
		query = query.Where("offering_id = ?", filter.OfferingID)
	}
	if filter.AcademicYear != "" {
		query = query.Where("academic_year = ?", filter.AcademicYear)
	}
	if filter.DegreeCode != "" {
		query = query.Where("degree_code = ?", filter.DegreeCode)
	}
	if filter.Year > 0 {
		query = query.Where("year = ?", filter.Year)
	}
	if filter.Term > 0 {
		query = query.Where("term = ?", filter.Term)
	}
	if filter.SubjectCode != "" {
		query = query.Where("subject_code = ?", filter.SubjectCode)
	}
	if filter.Bucket != "" {
		query = query.Where("bucket = ?", filter.Bucket)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Visibility != "" {
		query = query.Where("visibility = ?", filter.Visibility)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var assignments []models.Assignment
	if err := query.Order("bucket ASC, number ASC").Find(&assignments).Error; err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

func (r *assignmentRepository) NumberExists(ctx context.Context, offeringID uint, bucket models.Bucket, number int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("offering_id = ? AND bucket = ? AND number = ?", offeringID, bucket, number).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *assignmentRepository) TransitionStatus(ctx context.Context, id uint, from, to models.Status, actor string, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_by": actor,
		"updated_at": at,
	}
	if to == models.StatusPublished {
		updates["published_at"] = at
		updates["published_by"] = actor
	}

	result := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *assignmentRepository) SumPublishedRawMax(ctx context.Context, offeringID uint, bucket models.Bucket) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("offering_id = ? AND bucket = ? AND status = ? AND excluded = ?", offeringID, bucket, models.StatusPublished, false).
		Select("COALESCE(SUM(max_marks), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *assignmentRepository) CountSubmissions(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).Where("assignment_id = ?", id).Count(&count).Error
	return count, err
}

func (r *assignmentRepository) CountMarks(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Mark{}).Where("assignment_id = ?", id).Count(&count).Error
	return count, err
}

func (r *assignmentRepository) UpsertCOMapping(ctx context.Context, mapping *models.COMapping) error {
	var existing models.COMapping
	err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND co_code = ?", mapping.AssignmentID, mapping.COCode).
		First(&existing).Error
	switch {
	case err == nil:
		existing.Correlation = mapping.Correlation
		if saveErr := r.db.WithContext(ctx).Save(&existing).Error; saveErr != nil {
			return saveErr
		}
		*mapping = existing
		return nil
	case err == gorm.ErrRecordNotFound:
		return r.db.WithContext(ctx).Create(mapping).Error
	default:
		return err
	}
}

func (r *assignmentRepository) AttachRubric(ctx context.Context, attachment *models.RubricAttachment) error {
	if attachment.Sequence == 0 {
		var maxSequence int
		err := r.db.WithContext(ctx).Model(&models.RubricAttachment{}).
			Where("assignment_id = ?", attachment.AssignmentID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&maxSequence).Error
		if err != nil {
			return err
		}
		attachment.Sequence = maxSequence + 1
	}
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *assignmentRepository) UpsertEvaluator(ctx context.Context, evaluator *models.Evaluator) error {
	var existing models.Evaluator
	err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND faculty_id = ?", evaluator.AssignmentID, evaluator.FacultyID).
		First(&existing).Error
	switch {
	case err == nil:
		existing.Role = evaluator.Role
		existing.CanEditMarks = evaluator.CanEditMarks
		existing.CanModerate = evaluator.CanModerate
		existing.AssignedBy = evaluator.AssignedBy
		if saveErr := r.db.WithContext(ctx).Save(&existing).Error; saveErr != nil {
			return saveErr
		}
		*evaluator = existing
		return nil
	case err == gorm.ErrRecordNotFound:
		return r.db.WithContext(ctx).Create(evaluator).Error
	default:
		return err
	}
}

// ReplaceChildren swaps the owned child collections for the ones captured in
// a snapshot state. Used by rollback; call inside a transaction.
func (r *assignmentRepository) ReplaceChildren(ctx context.Context, id uint, state models.AssignmentState) error {
	db := r.db.WithContext(ctx)

	if err := db.Where("assignment_id = ?", id).Delete(&models.COMapping{}).Error; err != nil {
		return err
	}
	if err := db.Where("assignment_id = ?", id).Delete(&models.RubricAttachment{}).Error; err != nil {
		return err
	}
	if err := db.Where("assignment_id = ?", id).Delete(&models.Evaluator{}).Error; err != nil {
		return err
	}

	for i := range state.COMappings {
		mapping := state.COMappings[i]
		mapping.ID = 0
		mapping.AssignmentID = id
		if err := db.Create(&mapping).Error; err != nil {
			return err
		}
	}
	for i := range state.Rubrics {
		attachment := state.Rubrics[i]
		attachment.ID = 0
		attachment.AssignmentID = id
		if err := db.Create(&attachment).Error; err != nil {
			return err
		}
	}
	for i := range state.Evaluators {
		evaluator := state.Evaluators[i]
		evaluator.ID = 0
		evaluator.AssignmentID = id
		if err := db.Create(&evaluator).Error; err != nil {
			return err
		}
	}

	return nil
}
