package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acadops/assignment-api/internal/models"
)

func TestCoMappingsRange(t *testing.T) {
	mappings := []models.COMapping{
		{COCode: "CO1", Correlation: 0},
		{COCode: "CO2", Correlation: 3},
		{COCode: "CO3", Correlation: 4},
		{COCode: "CO4", Correlation: -1},
	}

	violations := CoMappings(mappings, false)
	require.Len(t, violations, 2)
	require.True(t, violations.Has(CodeInvalidRange))
	require.Equal(t, "CO3", violations[0].Field)
	require.Equal(t, "CO4", violations[1].Field)
}

func TestCoMappingsPublishRequiresPositiveCorrelation(t *testing.T) {
	allZero := []models.COMapping{
		{COCode: "CO1", Correlation: 0},
		{COCode: "CO2", Correlation: 0},
	}

	require.Empty(t, CoMappings(allZero, false))

	violations := CoMappings(allZero, true)
	require.Len(t, violations, 1)
	require.Equal(t, CodeInvalidRange, violations[0].Code)
	require.Equal(t, "co_mappings", violations[0].Field)

	onePositive := append(allZero, models.COMapping{COCode: "CO3", Correlation: 2})
	require.Empty(t, CoMappings(onePositive, true))
}

func TestRubricWeightsSingleMode(t *testing.T) {
	require.Empty(t, RubricWeights([]models.RubricAttachment{{WeightPercent: 100}}, models.RubricModeSingle))

	violations := RubricWeights([]models.RubricAttachment{{WeightPercent: 60}}, models.RubricModeSingle)
	require.True(t, violations.Has(CodeWeightMismatch))

	violations = RubricWeights([]models.RubricAttachment{
		{WeightPercent: 50},
		{WeightPercent: 50},
	}, models.RubricModeSingle)
	require.True(t, violations.Has(CodeWeightMismatch))
}

func TestRubricWeightsWeightedMode(t *testing.T) {
	attach := func(weights ...float64) []models.RubricAttachment {
		attachments := make([]models.RubricAttachment, 0, len(weights))
		for _, w := range weights {
			attachments = append(attachments, models.RubricAttachment{Mode: models.RubricModeWeighted, WeightPercent: w})
		}
		return attachments
	}

	require.Empty(t, RubricWeights(attach(40, 35, 25), models.RubricModeWeighted))
	require.Empty(t, RubricWeights(attach(100), models.RubricModeWeighted))

	// 99 and 101 are both rejected; there is no tolerance band.
	require.True(t, RubricWeights(attach(40, 34, 25), models.RubricModeWeighted).Has(CodeWeightMismatch))
	require.True(t, RubricWeights(attach(40, 36, 25), models.RubricModeWeighted).Has(CodeWeightMismatch))

	require.True(t, RubricWeights(nil, models.RubricModeWeighted).Has(CodeWeightMismatch))
	require.True(t, RubricWeights(attach(100), "C").Has(CodeWeightMismatch))
}

func TestDueDate(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	require.Empty(t, DueDate(now.Add(time.Hour), now, true))
	require.True(t, DueDate(now.Add(-time.Hour), now, true).Has(CodePastDueDate))
	require.True(t, DueDate(now, now, true).Has(CodePastDueDate))

	// Drafts may carry a past due date.
	require.Empty(t, DueDate(now.Add(-time.Hour), now, false))
}

func TestScope(t *testing.T) {
	require.Empty(t, Scope("", "BTECH-CSE"))
	require.Empty(t, Scope("BTECH-CSE", "BTECH-CSE"))
	require.True(t, Scope("MTECH-VLSI", "BTECH-CSE").Has(CodeScopeMismatch))
}

func TestPublishReadinessAggregatesViolations(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	assignment := models.Assignment{
		DueAt: now.Add(-24 * time.Hour),
		COMappings: []models.COMapping{
			{COCode: "CO1", Correlation: 0},
		},
		Rubrics: []models.RubricAttachment{
			{Mode: models.RubricModeWeighted, WeightPercent: 70},
		},
	}

	violations := PublishReadiness(assignment, now)
	require.True(t, violations.Has(CodeInvalidRange))
	require.True(t, violations.Has(CodePastDueDate))
	require.True(t, violations.Has(CodeWeightMismatch))
}

func TestPublishReadinessPasses(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	assignment := models.Assignment{
		DueAt: now.Add(48 * time.Hour),
		COMappings: []models.COMapping{
			{COCode: "CO1", Correlation: 2},
		},
		Rubrics: []models.RubricAttachment{
			{Mode: models.RubricModeSingle, WeightPercent: 100},
		},
	}

	require.Empty(t, PublishReadiness(assignment, now))
	require.NoError(t, PublishReadiness(assignment, now).OrNil())
}
