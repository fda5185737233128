package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/acadops/assignment-api/internal/models"
)

// AuditFilter narrows audit ledger queries.
type AuditFilter struct {
	AssignmentID uint
	OfferingID   uint
	ActorID      string
	Operation    string
	Page         int
	PageSize     int
}

// AuditLogRepository appends to and reads the immutable change ledger. There
// is deliberately no update or delete.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]models.AuditEntry, int64, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository instantiates a GORM-backed ledger.
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditLogRepository) List(ctx context.Context, filter AuditFilter) ([]models.AuditEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditEntry{})

	if filter.AssignmentID > 0 {
		query = query.Where("assignment_id = ?", filter.AssignmentID)
	}
	if filter.OfferingID > 0 {
		query = query.Where("offering_id = ?", filter.OfferingID)
	}
	if filter.ActorID != "" {
		query = query.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Operation != "" {
		query = query.Where("operation = ?", filter.Operation)
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

	var entries []models.AuditEntry
	if err := query.Order("occurred_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
