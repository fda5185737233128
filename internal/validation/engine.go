package validation

import (
	"fmt"
	"time"

	"github.com/acadops/assignment-api/internal/models"
)

// CoMappings checks that every correlation value is within {0..3} and, when
// forPublish is set, that at least one mapping correlates above zero.
func CoMappings(mappings []models.COMapping, forPublish bool) Violations {
	var violations Violations

	anyPositive := false
	for _, mapping := range mappings {
		if mapping.Correlation < models.CorrelationMin || mapping.Correlation > models.CorrelationMax {
			violations = append(violations, Violation{
				Code:    CodeInvalidRange,
				Field:   mapping.COCode,
				Message: fmt.Sprintf("correlation %d outside allowed range %d..%d", mapping.Correlation, models.CorrelationMin, models.CorrelationMax),
			})
			continue
		}
		if mapping.Correlation > models.CorrelationMin {
			anyPositive = true
		}
	}

	if forPublish && !anyPositive {
		violations = append(violations, Violation{
			Code:    CodeInvalidRange,
			Field:   "co_mappings",
			Message: "publishing requires at least one course outcome with correlation above zero",
		})
	}

	return violations
}

// RubricWeights checks the attachment set against its mode: single mode
// requires exactly one attachment at full weight, weighted mode requires the
// weights to sum to exactly 100 with no tolerance.
func RubricWeights(attachments []models.RubricAttachment, mode models.RubricMode) Violations {
	var violations Violations

	switch mode {
	case models.RubricModeSingle:
		if len(attachments) != 1 {
			violations = append(violations, Violation{
				Code:    CodeWeightMismatch,
				Field:   "rubrics",
				Message: fmt.Sprintf("single-rubric mode requires exactly one attachment, found %d", len(attachments)),
			})
			return violations
		}
		if attachments[0].WeightPercent != models.FullWeightPercent {
			violations = append(violations, Violation{
				Code:    CodeWeightMismatch,
				Field:   "rubrics",
				Message: fmt.Sprintf("single-rubric mode requires weight 100, found %g", attachments[0].WeightPercent),
			})
		}
	case models.RubricModeWeighted:
		if len(attachments) == 0 {
			violations = append(violations, Violation{
				Code:    CodeWeightMismatch,
				Field:   "rubrics",
				Message: "weighted mode requires at least one rubric attachment",
			})
			return violations
		}
		var sum float64
		for _, attachment := range attachments {
			sum += attachment.WeightPercent
		}
		if sum != models.FullWeightPercent {
			violations = append(violations, Violation{
				Code:    CodeWeightMismatch,
				Field:   "rubrics",
				Message: fmt.Sprintf("rubric weights must sum to exactly 100, found %g", sum),
			})
		}
	default:
		violations = append(violations, Violation{
			Code:    CodeWeightMismatch,
			Field:   "rubrics",
			Message: fmt.Sprintf("unknown rubric mode %q", mode),
		})
	}

	return violations
}

// DueDate checks the deadline. Publishing requires a due date strictly in the
// future; draft saves carry no such restriction.
func DueDate(dueAt, now time.Time, forPublish bool) Violations {
	if !forPublish {
		return nil
	}
	if !dueAt.After(now) {
		return Violations{{
			Code:    CodePastDueDate,
			Field:   "due_at",
			Message: "due date must be strictly in the future to publish",
		}}
	}
	return nil
}

// Scope checks that a rubric's degree scope covers the assignment: an empty
// rubric scope is global, otherwise the codes must match.
func Scope(rubricDegreeCode, assignmentDegreeCode string) Violations {
	if rubricDegreeCode == "" || rubricDegreeCode == assignmentDegreeCode {
		return nil
	}
	return Violations{{
		Code:    CodeScopeMismatch,
		Field:   "degree_code",
		Message: fmt.Sprintf("rubric scoped to degree %q cannot attach to assignment in degree %q", rubricDegreeCode, assignmentDegreeCode),
	}}
}

// PublishReadiness composes every structural check required before the draft
// to published transition and returns the union of violations found.
func PublishReadiness(assignment models.Assignment, now time.Time) Violations {
	var violations Violations

	violations = append(violations, CoMappings(assignment.COMappings, true)...)
	violations = append(violations, DueDate(assignment.DueAt, now, true)...)

	if len(assignment.Rubrics) > 0 {
		mode := assignment.Rubrics[0].Mode
		violations = append(violations, RubricWeights(assignment.Rubrics, mode)...)
	}

	return violations
}
