package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/acadops/assignment-api/internal/models"
)

// ExtensionRepository persists per-student due-date extension requests.
type ExtensionRepository interface {
	Create(ctx context.Context, extension *models.Extension) error
	GetByID(ctx context.Context, id uint) (models.Extension, error)
	Update(ctx context.Context, extension *models.Extension) error
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Extension, error)
}

type extensionRepository struct {
	db *gorm.DB
}

// NewExtensionRepository instantiates a GORM-backed extension store.
func NewExtensionRepository(db *gorm.DB) ExtensionRepository {
	return &extensionRepository{db: db}
}

func (r *extensionRepository) Create(ctx context.Context, extension *models.Extension) error {
	return r.db.WithContext(ctx).Create(extension).Error
}

func (r *extensionRepository) GetByID(ctx context.Context, id uint) (models.Extension, error) {
	var extension models.Extension
	if err := r.db.WithContext(ctx).First(&extension, id).Error; err != nil {
		return models.Extension{}, err
	}
	return extension, nil
}

func (r *extensionRepository) Update(ctx context.Context, extension *models.Extension) error {
	return r.db.WithContext(ctx).Save(extension).Error
}

func (r *extensionRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Extension, error) {
	var extensions []models.Extension
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("requested_at DESC").
		Find(&extensions).Error
	if err != nil {
		return nil, err
	}
	return extensions, nil
}
