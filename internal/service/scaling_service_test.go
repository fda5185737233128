package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/acadops/assignment-api/internal/models"
	"github.com/acadops/assignment-api/internal/repository"
)

func setupScalingService(t *testing.T, withCache bool) (*gorm.DB, ScalingService) {
	t.Helper()

	db := openServiceDB(t, "scaling_service")

	var client *redis.Client
	if withCache {
		mr := miniredis.RunT(t)
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	}

	service := NewScalingService(db, repository.NewOfferingRepository(db), client, time.Minute, zerolog.Nop())
	return db, service
}

func seedPublished(t *testing.T, db *gorm.DB, offeringID uint, bucket models.Bucket, number int, maxMarks float64) models.Assignment {
	t.Helper()

	assignment := models.Assignment{
		OfferingID:   offeringID,
		AcademicYear: "2026-27",
		DegreeCode:   "BTECH-CSE",
		Year:         3,
		Term:         5,
		SubjectCode:  "CS301",
		Number:       number,
		Title:        "Assignment",
		Bucket:       bucket,
		MaxMarks:     maxMarks,
		DueAt:        testNow.Add(24 * time.Hour),
		Status:       models.StatusPublished,
		Visibility:   models.VisibilityAccepting,
	}
	require.NoError(t, db.Create(&assignment).Error)
	return assignment
}

func TestScalingServiceScaledMarks(t *testing.T) {
	db, service := setupScalingService(t, false)
	offering := seedOffering(t, db)
	ctx := context.Background()

	for i, max := range []float64{10, 10, 15, 15} {
		seedPublished(t, db, offering.ID, models.BucketInternal, i+1, max)
	}
	// A draft does not count towards the raw total.
	draft := seedPublished(t, db, offering.ID, models.BucketInternal, 5, 99)
	require.NoError(t, db.Model(&models.Assignment{}).Where("id = ?", draft.ID).Update("status", models.StatusDraft).Error)

	var graded models.Assignment
	require.NoError(t, db.Where("offering_id = ? AND number = ?", offering.ID, 1).First(&graded).Error)
	require.NoError(t, db.Create(&models.Mark{AssignmentID: graded.ID, StudentRollNo: "22BCE1001", RawMarks: 8, MaxMarks: 10, GradedBy: "FAC-9001"}).Error)
	require.NoError(t, db.Create(&models.Mark{AssignmentID: graded.ID, StudentRollNo: "22BCE1002", RawMarks: 10, MaxMarks: 10, GradedBy: "FAC-9001"}).Error)

	response, err := service.ScaledMarks(ctx, offering.ID, models.BucketInternal)
	require.NoError(t, err)
	require.Equal(t, 40.0, response.BucketMax)
	require.Equal(t, 50.0, response.RawTotal)
	require.Equal(t, 0.8, response.ScalingFactor)
	require.False(t, response.Undefined)
	require.False(t, response.CacheHit)
	require.Len(t, response.Marks, 2)
	require.Equal(t, 8.0, response.Marks[0].RawMarks)
	require.Equal(t, 6.4, response.Marks[0].ScaledMarks)
	require.Equal(t, 8.0, response.Marks[1].ScaledMarks)
}

func TestScalingServiceFactorRecomputes(t *testing.T) {
	db, service := setupScalingService(t, false)
	offering := seedOffering(t, db)
	ctx := context.Background()

	for i, max := range []float64{10, 10, 15, 15} {
		seedPublished(t, db, offering.ID, models.BucketInternal, i+1, max)
	}

	factor, err := service.Factor(ctx, offering.ID, models.BucketInternal)
	require.NoError(t, err)
	require.Equal(t, 0.8, factor.Value)

	again, err := service.Factor(ctx, offering.ID, models.BucketInternal)
	require.NoError(t, err)
	require.Equal(t, factor, again)

	// Publishing one more 10-mark assignment shifts the factor on the next read.
	seedPublished(t, db, offering.ID, models.BucketInternal, 5, 10)
	shifted, err := service.Factor(ctx, offering.ID, models.BucketInternal)
	require.NoError(t, err)
	require.InDelta(t, 0.6667, shifted.Value, 0.0001)
}

func TestScalingServiceFactorUndefined(t *testing.T) {
	db, service := setupScalingService(t, false)
	offering := seedOffering(t, db)

	factor, err := service.Factor(context.Background(), offering.ID, models.BucketExternal)
	require.NoError(t, err)
	require.True(t, factor.Undefined)
	require.Equal(t, 1.0, factor.Value)

	_, err = service.Factor(context.Background(), offering.ID+100, models.BucketInternal)
	require.ErrorIs(t, err, ErrOfferingNotFound)
}

func TestScalingServiceCache(t *testing.T) {
	db, service := setupScalingService(t, true)
	offering := seedOffering(t, db)
	ctx := context.Background()

	seedPublished(t, db, offering.ID, models.BucketInternal, 1, 10)

	response, err := service.ScaledMarks(ctx, offering.ID, models.BucketInternal)
	require.NoError(t, err)
	require.False(t, response.CacheHit)
	require.Equal(t, 4.0, response.ScalingFactor)

	cached, err := service.ScaledMarks(ctx, offering.ID, models.BucketInternal)
	require.NoError(t, err)
	require.True(t, cached.CacheHit)
	require.Equal(t, response.ScalingFactor, cached.ScalingFactor)

	// The cached result is stale until invalidated.
	seedPublished(t, db, offering.ID, models.BucketInternal, 2, 10)
	stale, err := service.ScaledMarks(ctx, offering.ID, models.BucketInternal)
	require.NoError(t, err)
	require.True(t, stale.CacheHit)
	require.Equal(t, 4.0, stale.ScalingFactor)

	require.NoError(t, service.InvalidateOffering(ctx, offering.ID))
	fresh, err := service.ScaledMarks(ctx, offering.ID, models.BucketInternal)
	require.NoError(t, err)
	require.False(t, fresh.CacheHit)
	require.Equal(t, 2.0, fresh.ScalingFactor)
}
