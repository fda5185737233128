package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/acadops/assignment-api/internal/models"
)

// BucketMark pairs a recorded mark with the assignment fields the scaling
// calculator needs.
type BucketMark struct {
	models.Mark
	AssignmentNumber int     `json:"assignment_number"`
	AssignmentTitle  string  `json:"assignment_title"`
	AssignmentMax    float64 `json:"assignment_max"`
}

// MarkRepository persists recorded marks. Marks exist only for published
// assignments; the service layer enforces that invariant.
type MarkRepository interface {
	Upsert(ctx context.Context, mark *models.Mark) error
	GetByID(ctx context.Context, id uint) (models.Mark, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Mark, error)
	// ListCountedByBucket returns marks for published, non-excluded
	// assignments in the offering's bucket, excused marks filtered out.
	ListCountedByBucket(ctx context.Context, offeringID uint, bucket models.Bucket) ([]BucketMark, error)
}

type markRepository struct {
	db *gorm.DB
}

// NewMarkRepository instantiates a GORM-backed mark store.
func NewMarkRepository(db *gorm.DB) MarkRepository {
	return &markRepository{db: db}
}

func (r *markRepository) Upsert(ctx context.Context, mark *models.Mark) error {
	var existing models.Mark
	err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND student_roll_no = ?", mark.AssignmentID, mark.StudentRollNo).
		First(&existing).Error
	switch {
	case err == nil:
		mark.ID = existing.ID
		return r.db.WithContext(ctx).Save(mark).Error
	case err == gorm.ErrRecordNotFound:
		return r.db.WithContext(ctx).Create(mark).Error
	default:
		return err
	}
}

func (r *markRepository) GetByID(ctx context.Context, id uint) (models.Mark, error) {
	var mark models.Mark
	if err := r.db.WithContext(ctx).First(&mark, id).Error; err != nil {
		return models.Mark{}, err
	}
	return mark, nil
}

func (r *markRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Mark, error) {
	var marks []models.Mark
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("student_roll_no ASC").
		Find(&marks).Error
	if err != nil {
		return nil, err
	}
	return marks, nil
}

func (r *markRepository) ListCountedByBucket(ctx context.Context, offeringID uint, bucket models.Bucket) ([]BucketMark, error) {
	var marks []BucketMark
	err := r.db.WithContext(ctx).Model(&models.Mark{}).
		Select("marks.*, assignments.number AS assignment_number, assignments.title AS assignment_title, assignments.max_marks AS assignment_max").
		Joins("JOIN assignments ON assignments.id = marks.assignment_id").
		Where("assignments.offering_id = ? AND assignments.bucket = ? AND assignments.status = ? AND assignments.excluded = ?",
			offeringID, bucket, models.StatusPublished, false).
		Where("marks.is_excused = ?", false).
		Order("assignments.number ASC, marks.student_roll_no ASC").
		Find(&marks).Error
	if err != nil {
		return nil, err
	}
	return marks, nil
}
