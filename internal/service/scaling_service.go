package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/acadops/assignment-api/internal/dto"
	"github.com/acadops/assignment-api/internal/models"
	"github.com/acadops/assignment-api/internal/repository"
	"github.com/acadops/assignment-api/internal/scaling"
)

// ScalingService derives per-bucket scaled marks on read. Results are cached
// in Redis and invalidated whenever a mutation changes what counts towards
// the bucket total; raw marks stay the value of record throughout.
type ScalingService interface {
	ScaledMarks(ctx context.Context, offeringID uint, bucket models.Bucket) (dto.ScaledMarksResponse, error)
	Factor(ctx context.Context, offeringID uint, bucket models.Bucket) (scaling.Factor, error)
	InvalidateOffering(ctx context.Context, offeringID uint) error
}

type scalingService struct {
	assignments repository.AssignmentRepository
	offerings   repository.OfferingRepository
	marks       repository.MarkRepository
	redis       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewScalingService constructs the scaling service. The Redis client is
// optional; without one every read recomputes from the database.
func NewScalingService(db *gorm.DB, offerings repository.OfferingRepository, redisClient *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) ScalingService {
	return &scalingService{
		assignments: repository.NewAssignmentRepository(db),
		offerings:   offerings,
		marks:       repository.NewMarkRepository(db),
		redis:       redisClient,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "scaling_service").Logger(),
		tracer:      otel.Tracer("github.com/acadops/assignment-api/internal/service/scaling"),
		now:         time.Now,
	}
}

func scalingCacheKey(offeringID uint, bucket models.Bucket) string {
	return fmt.Sprintf("assignments:scaling:%d:%s", offeringID, bucket)
}

func (s *scalingService) ScaledMarks(ctx context.Context, offeringID uint, bucket models.Bucket) (dto.ScaledMarksResponse, error) {
	ctx, span := s.tracer.Start(ctx, "scaling.scaled_marks", trace.WithAttributes(
		attribute.Int64("offering_id", int64(offeringID)),
		attribute.String("bucket", string(bucket)),
	))
	defer span.End()

	if cached, ok := s.fromCache(ctx, offeringID, bucket); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}

	offering, err := s.offerings.GetByID(ctx, offeringID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScaledMarksResponse{}, ErrOfferingNotFound
		}
		return dto.ScaledMarksResponse{}, err
	}

	rawTotal, err := s.assignments.SumPublishedRawMax(ctx, offeringID, bucket)
	if err != nil {
		return dto.ScaledMarksResponse{}, err
	}
	factor := scaling.ComputeFactor(offering.BucketMax(bucket), rawTotal)

	bucketMarks, err := s.marks.ListCountedByBucket(ctx, offeringID, bucket)
	if err != nil {
		return dto.ScaledMarksResponse{}, err
	}

	scaled := make([]dto.ScaledMark, 0, len(bucketMarks))
	for _, mark := range bucketMarks {
		scaled = append(scaled, dto.ScaledMark{
			MarkID:           mark.ID,
			AssignmentID:     mark.AssignmentID,
			AssignmentNumber: mark.AssignmentNumber,
			AssignmentTitle:  mark.AssignmentTitle,
			StudentRollNo:    mark.StudentRollNo,
			RawMarks:         mark.RawMarks,
			MaxMarks:         mark.AssignmentMax,
			ScaledMarks:      factor.Scale(mark.RawMarks),
		})
	}

	response := dto.ScaledMarksResponse{
		OfferingID:    offeringID,
		Bucket:        bucket,
		BucketMax:     factor.BucketMax,
		RawTotal:      factor.RawTotal,
		ScalingFactor: factor.Value,
		Undefined:     factor.Undefined,
		Marks:         scaled,
		ComputedAt:    s.now().UTC(),
	}

	s.toCache(ctx, offeringID, bucket, response)
	return response, nil
}

func (s *scalingService) Factor(ctx context.Context, offeringID uint, bucket models.Bucket) (scaling.Factor, error) {
	offering, err := s.offerings.GetByID(ctx, offeringID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return scaling.Factor{}, ErrOfferingNotFound
		}
		return scaling.Factor{}, err
	}
	rawTotal, err := s.assignments.SumPublishedRawMax(ctx, offeringID, bucket)
	if err != nil {
		return scaling.Factor{}, err
	}
	return scaling.ComputeFactor(offering.BucketMax(bucket), rawTotal), nil
}

func (s *scalingService) InvalidateOffering(ctx context.Context, offeringID uint) error {
	if s.redis == nil {
		return nil
	}
	keys := []string{
		scalingCacheKey(offeringID, models.BucketInternal),
		scalingCacheKey(offeringID, models.BucketExternal),
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return err
	}
	s.logger.Debug().Uint("offering_id", offeringID).Msg("scaling cache invalidated")
	return nil
}

func (s *scalingService) fromCache(ctx context.Context, offeringID uint, bucket models.Bucket) (dto.ScaledMarksResponse, bool) {
	if s.redis == nil {
		return dto.ScaledMarksResponse{}, false
	}
	payload, err := s.redis.Get(ctx, scalingCacheKey(offeringID, bucket)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("read scaling cache")
		}
		return dto.ScaledMarksResponse{}, false
	}
	var response dto.ScaledMarksResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		s.logger.Warn().Err(err).Msg("decode scaling cache entry")
		return dto.ScaledMarksResponse{}, false
	}
	response.CacheHit = true
	return response, true
}

func (s *scalingService) toCache(ctx context.Context, offeringID uint, bucket models.Bucket, response dto.ScaledMarksResponse) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(response)
	if err != nil {
		s.logger.Warn().Err(err).Msg("encode scaling cache entry")
		return
	}
	if err := s.redis.Set(ctx, scalingCacheKey(offeringID, bucket), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("write scaling cache")
	}
}
