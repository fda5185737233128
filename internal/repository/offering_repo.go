package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/acadops/assignment-api/internal/models"
)

// OfferingRepository reads subject offerings and catalog reference data
// owned by other modules.
type OfferingRepository interface {
	GetByID(ctx context.Context, id uint) (models.Offering, error)
	ListOutcomes(ctx context.Context, offeringID uint) ([]models.CourseOutcome, error)
	GetRubric(ctx context.Context, id uint) (models.Rubric, error)
}

type offeringRepository struct {
	db *gorm.DB
}

// NewOfferingRepository instantiates a GORM-backed lookup.
func NewOfferingRepository(db *gorm.DB) OfferingRepository {
	return &offeringRepository{db: db}
}

func (r *offeringRepository) GetByID(ctx context.Context, id uint) (models.Offering, error) {
	var offering models.Offering
	if err := r.db.WithContext(ctx).First(&offering, id).Error; err != nil {
		return models.Offering{}, err
	}
	return offering, nil
}

func (r *offeringRepository) ListOutcomes(ctx context.Context, offeringID uint) ([]models.CourseOutcome, error) {
	var outcomes []models.CourseOutcome
	err := r.db.WithContext(ctx).
		Where("offering_id = ?", offeringID).
		Order("code ASC").
		Find(&outcomes).Error
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (r *offeringRepository) GetRubric(ctx context.Context, id uint) (models.Rubric, error) {
	var rubric models.Rubric
	if err := r.db.WithContext(ctx).First(&rubric, id).Error; err != nil {
		return models.Rubric{}, err
	}
	return rubric, nil
}
