package contract_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/acadops/assignment-api/internal/dto"
	"github.com/acadops/assignment-api/internal/handler"
	"github.com/acadops/assignment-api/internal/models"
	"github.com/acadops/assignment-api/internal/scaling"
)

type stubScalingService struct {
	response dto.ScaledMarksResponse
}

func (s stubScalingService) ScaledMarks(context.Context, uint, models.Bucket) (dto.ScaledMarksResponse, error) {
	return s.response, nil
}

func (s stubScalingService) Factor(context.Context, uint, models.Bucket) (scaling.Factor, error) {
	return scaling.ComputeFactor(s.response.BucketMax, s.response.RawTotal), nil
}

func (s stubScalingService) InvalidateOffering(context.Context, uint) error {
	return nil
}

func TestScaledMarksContract(t *testing.T) {
	schema := loadSchema(t, "scaled_marks_envelope.schema.json")

	stub := stubScalingService{
		response: dto.ScaledMarksResponse{
			OfferingID:    3,
			Bucket:        models.BucketInternal,
			BucketMax:     40,
			RawTotal:      50,
			ScalingFactor: 0.8,
			Marks: []dto.ScaledMark{
				{
					MarkID:           11,
					AssignmentID:     7,
					AssignmentNumber: 2,
					AssignmentTitle:  "Scheduler simulation",
					StudentRollNo:    "22BCE1001",
					RawMarks:         8,
					MaxMarks:         10,
					ScaledMarks:      6.4,
				},
			},
			ComputedAt: time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC),
		},
	}

	app := fiber.New()
	handler.NewScalingHandler(stub, zerolog.Nop()).Register(app.Group("/api/v1/offerings"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/offerings/3/buckets/Internal/scaled-marks", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validateResponse(t, schema, resp)
}
