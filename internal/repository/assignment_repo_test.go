package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/acadops/assignment-api/internal/models"
)

func setupAssignmentRepo(t *testing.T) (*gorm.DB, AssignmentRepository) {
	t.Helper()

	dsn := fmt.Sprintf("file:assignment_repo_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Assignment{},
		&models.COMapping{},
		&models.RubricAttachment{},
		&models.Evaluator{},
		&models.Submission{},
		&models.Mark{},
	))

	return db, NewAssignmentRepository(db)
}

func seedAssignment(t *testing.T, repo AssignmentRepository, offeringID uint, bucket models.Bucket, number int, status models.Status, maxMarks float64) models.Assignment {
	t.Helper()

	assignment := models.Assignment{
		OfferingID:   offeringID,
		AcademicYear: "2026-27",
		DegreeCode:   "BTECH-CSE",
		Year:         3,
		Term:         5,
		SubjectCode:  "CS301",
		Number:       number,
		Title:        fmt.Sprintf("Assignment %d", number),
		Bucket:       bucket,
		MaxMarks:     maxMarks,
		DueAt:        time.Date(2026, time.October, 1, 23, 59, 0, 0, time.UTC),
		Status:       status,
		Visibility:   models.VisibilityHidden,
		CreatedBy:    "FAC-9001",
	}
	require.NoError(t, repo.Create(context.Background(), &assignment))
	return assignment
}

func TestAssignmentRepositoryNumberExists(t *testing.T) {
	_, repo := setupAssignmentRepo(t)
	ctx := context.Background()

	seedAssignment(t, repo, 1, models.BucketInternal, 2, models.StatusDraft, 10)

	exists, err := repo.NumberExists(ctx, 1, models.BucketInternal, 2)
	require.NoError(t, err)
	require.True(t, exists)

	// The number is free in the other bucket and in other offerings.
	exists, err = repo.NumberExists(ctx, 1, models.BucketExternal, 2)
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = repo.NumberExists(ctx, 2, models.BucketInternal, 2)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestAssignmentRepositoryTransitionStatus(t *testing.T) {
	db, repo := setupAssignmentRepo(t)
	ctx := context.Background()

	assignment := seedAssignment(t, repo, 1, models.BucketInternal, 1, models.StatusDraft, 10)
	at := time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)

	moved, err := repo.TransitionStatus(ctx, assignment.ID, models.StatusDraft, models.StatusPublished, "SIC-22", at)
	require.NoError(t, err)
	require.True(t, moved)

	var stored models.Assignment
	require.NoError(t, db.First(&stored, assignment.ID).Error)
	require.Equal(t, models.StatusPublished, stored.Status)
	require.Equal(t, "SIC-22", stored.PublishedBy)
	require.NotNil(t, stored.PublishedAt)

	// A second mover racing from the stale draft status loses.
	moved, err = repo.TransitionStatus(ctx, assignment.ID, models.StatusDraft, models.StatusPublished, "SIC-23", at)
	require.NoError(t, err)
	require.False(t, moved)
}

func TestAssignmentRepositorySumPublishedRawMax(t *testing.T) {
	_, repo := setupAssignmentRepo(t)
	ctx := context.Background()

	seedAssignment(t, repo, 1, models.BucketInternal, 1, models.StatusPublished, 10)
	seedAssignment(t, repo, 1, models.BucketInternal, 2, models.StatusPublished, 15)
	seedAssignment(t, repo, 1, models.BucketInternal, 3, models.StatusDraft, 50)
	seedAssignment(t, repo, 1, models.BucketExternal, 1, models.StatusPublished, 60)

	excluded := seedAssignment(t, repo, 1, models.BucketInternal, 4, models.StatusPublished, 25)
	excluded.Excluded = true
	require.NoError(t, repo.Update(ctx, &excluded))

	total, err := repo.SumPublishedRawMax(ctx, 1, models.BucketInternal)
	require.NoError(t, err)
	require.Equal(t, 25.0, total)
}

func TestAssignmentRepositoryListWithFilter(t *testing.T) {
	_, repo := setupAssignmentRepo(t)
	ctx := context.Background()

	seedAssignment(t, repo, 1, models.BucketInternal, 1, models.StatusPublished, 10)
	seedAssignment(t, repo, 1, models.BucketInternal, 2, models.StatusDraft, 10)
	seedAssignment(t, repo, 2, models.BucketExternal, 1, models.StatusPublished, 60)

	assignments, total, err := repo.ListWithFilter(ctx, AssignmentFilter{OfferingID: 1, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, assignments, 2)

	assignments, total, err = repo.ListWithFilter(ctx, AssignmentFilter{Status: models.StatusPublished, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)

	assignments, total, err = repo.ListWithFilter(ctx, AssignmentFilter{OfferingID: 1, Page: 1, PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, assignments, 1)
	require.Equal(t, 1, assignments[0].Number)
}

func TestAssignmentRepositoryReplaceChildren(t *testing.T) {
	db, repo := setupAssignmentRepo(t)
	ctx := context.Background()

	assignment := seedAssignment(t, repo, 1, models.BucketInternal, 1, models.StatusPublished, 10)
	require.NoError(t, repo.UpsertCOMapping(ctx, &models.COMapping{AssignmentID: assignment.ID, COCode: "CO1", Correlation: 1}))
	require.NoError(t, repo.UpsertCOMapping(ctx, &models.COMapping{AssignmentID: assignment.ID, COCode: "CO2", Correlation: 2}))

	state := models.AssignmentState{
		COMappings: []models.COMapping{{COCode: "CO3", Correlation: 3}},
		Evaluators: []models.Evaluator{{FacultyID: "FAC-9001", Role: "evaluator", CanEditMarks: true}},
	}
	require.NoError(t, repo.ReplaceChildren(ctx, assignment.ID, state))

	var mappings []models.COMapping
	require.NoError(t, db.Where("assignment_id = ?", assignment.ID).Find(&mappings).Error)
	require.Len(t, mappings, 1)
	require.Equal(t, "CO3", mappings[0].COCode)

	var evaluators []models.Evaluator
	require.NoError(t, db.Where("assignment_id = ?", assignment.ID).Find(&evaluators).Error)
	require.Len(t, evaluators, 1)
	require.Equal(t, "FAC-9001", evaluators[0].FacultyID)
}

func TestAssignmentRepositoryUpsertCOMappingUpdatesInPlace(t *testing.T) {
	db, repo := setupAssignmentRepo(t)
	ctx := context.Background()

	assignment := seedAssignment(t, repo, 1, models.BucketInternal, 1, models.StatusDraft, 10)

	first := models.COMapping{AssignmentID: assignment.ID, COCode: "CO1", Correlation: 1}
	require.NoError(t, repo.UpsertCOMapping(ctx, &first))

	second := models.COMapping{AssignmentID: assignment.ID, COCode: "CO1", Correlation: 3}
	require.NoError(t, repo.UpsertCOMapping(ctx, &second))
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.COMapping{}).Where("assignment_id = ?", assignment.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}
