package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/acadops/assignment-api/internal/models"
)

func setupSnapshotRepo(t *testing.T) (*gorm.DB, SnapshotRepository) {
	t.Helper()

	dsn := fmt.Sprintf("file:snapshot_repo_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Snapshot{}))

	return db, NewSnapshotRepository(db)
}

func newSnapshot(assignmentID uint, trigger string) *models.Snapshot {
	return &models.Snapshot{
		AssignmentID: assignmentID,
		Trigger:      trigger,
		State:        datatypes.JSON(`{"assignment":{}}`),
		CreatedBy:    "FAC-9001",
	}
}

func TestSnapshotRepositoryAssignsSequence(t *testing.T) {
	_, repo := setupSnapshotRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		snapshot := newSnapshot(7, models.SnapshotTriggerEdit)
		require.NoError(t, repo.Create(ctx, snapshot))
		require.Equal(t, i+1, snapshot.Sequence)
	}

	// Sequences are scoped per assignment.
	other := newSnapshot(8, models.SnapshotTriggerCreate)
	require.NoError(t, repo.Create(ctx, other))
	require.Equal(t, 1, other.Sequence)
}

func TestSnapshotRepositoryRetention(t *testing.T) {
	_, repo := setupSnapshotRepo(t)
	ctx := context.Background()

	for i := 0; i < models.SnapshotRetention; i++ {
		require.NoError(t, repo.Create(ctx, newSnapshot(3, models.SnapshotTriggerEdit)))
	}

	count, err := repo.CountByAssignment(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, int64(models.SnapshotRetention), count)

	// One past the bound evicts the oldest and only the oldest.
	require.NoError(t, repo.Create(ctx, newSnapshot(3, models.SnapshotTriggerPublish)))

	count, err = repo.CountByAssignment(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, int64(models.SnapshotRetention), count)

	snapshots, err := repo.ListByAssignment(ctx, 3)
	require.NoError(t, err)
	require.Len(t, snapshots, models.SnapshotRetention)
	require.Equal(t, models.SnapshotRetention+1, snapshots[0].Sequence)
	require.Equal(t, 2, snapshots[len(snapshots)-1].Sequence)
}

func TestSnapshotRepositoryListNewestFirst(t *testing.T) {
	_, repo := setupSnapshotRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newSnapshot(5, models.SnapshotTriggerCreate)))
	require.NoError(t, repo.Create(ctx, newSnapshot(5, models.SnapshotTriggerPublish)))

	snapshots, err := repo.ListByAssignment(ctx, 5)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	require.Equal(t, models.SnapshotTriggerPublish, snapshots[0].Trigger)
	require.Equal(t, models.SnapshotTriggerCreate, snapshots[1].Trigger)
}
