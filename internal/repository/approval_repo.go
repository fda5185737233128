package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/acadops/assignment-api/internal/models"
)

// ApprovalRepository records elevated-approval bookkeeping rows.
type ApprovalRepository interface {
	Create(ctx context.Context, approval *models.Approval) error
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Approval, error)
}

type approvalRepository struct {
	db *gorm.DB
}

// NewApprovalRepository instantiates a GORM-backed approval store.
func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) Create(ctx context.Context, approval *models.Approval) error {
	return r.db.WithContext(ctx).Create(approval).Error
}

func (r *approvalRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Approval, error) {
	var approvals []models.Approval
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("requested_at DESC").
		Find(&approvals).Error
	if err != nil {
		return nil, err
	}
	return approvals, nil
}
