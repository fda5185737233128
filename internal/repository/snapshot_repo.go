package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/acadops/assignment-api/internal/models"
)

// SnapshotRepository persists point-in-time assignment snapshots with a
// bounded per-assignment retention window.
type SnapshotRepository interface {
	// Create inserts the snapshot, assigns it the next sequence number for
	// its assignment, and evicts the oldest snapshots beyond the retention
	// bound (FIFO by creation order).
	Create(ctx context.Context, snapshot *models.Snapshot) error
	GetByID(ctx context.Context, id uint) (models.Snapshot, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Snapshot, error)
	CountByAssignment(ctx context.Context, assignmentID uint) (int64, error)
}

type snapshotRepository struct {
	db        *gorm.DB
	retention int
}

// NewSnapshotRepository instantiates a GORM-backed snapshot store with the
// default retention bound.
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db, retention: models.SnapshotRetention}
}

func (r *snapshotRepository) Create(ctx context.Context, snapshot *models.Snapshot) error {
	db := r.db.WithContext(ctx)

	var maxSequence int
	err := db.Model(&models.Snapshot{}).
		Where("assignment_id = ?", snapshot.AssignmentID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&maxSequence).Error
	if err != nil {
		return err
	}
	snapshot.Sequence = maxSequence + 1

	if err := db.Create(snapshot).Error; err != nil {
		return err
	}

	return r.prune(ctx, snapshot.AssignmentID)
}

func (r *snapshotRepository) prune(ctx context.Context, assignmentID uint) error {
	db := r.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Snapshot{}).Where("assignment_id = ?", assignmentID).Count(&count).Error; err != nil {
		return err
	}

	excess := count - int64(r.retention)
	if excess <= 0 {
		return nil
	}

	var oldest []models.Snapshot
	err := db.Where("assignment_id = ?", assignmentID).
		Order("sequence ASC").
		Limit(int(excess)).
		Find(&oldest).Error
	if err != nil {
		return err
	}

	ids := make([]uint, 0, len(oldest))
	for _, snapshot := range oldest {
		ids = append(ids, snapshot.ID)
	}

	return db.Delete(&models.Snapshot{}, ids).Error
}

func (r *snapshotRepository) GetByID(ctx context.Context, id uint) (models.Snapshot, error) {
	var snapshot models.Snapshot
	if err := r.db.WithContext(ctx).First(&snapshot, id).Error; err != nil {
		return models.Snapshot{}, err
	}
	return snapshot, nil
}

func (r *snapshotRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Snapshot, error) {
	var snapshots []models.Snapshot
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("sequence DESC").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *snapshotRepository) CountByAssignment(ctx context.Context, assignmentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Snapshot{}).
		Where("assignment_id = ?", assignmentID).
		Count(&count).Error
	return count, err
}
