// Package workflow defines the assignment lifecycle state machine: which
// status transitions are legal, how visibility advances, and which edits to a
// published assignment count as major.
package workflow

import (
	"github.com/acadops/assignment-api/internal/models"
)

// statusTransitions lists the legal moves out of each status. Archived and
// deactivated are terminal.
var statusTransitions = map[models.Status][]models.Status{
	models.StatusDraft:     {models.StatusPublished, models.StatusArchived, models.StatusDeactivated},
	models.StatusPublished: {models.StatusArchived},
}

// visibilityOrder fixes the forward-only progression of visibility states.
var visibilityOrder = map[models.Visibility]int{
	models.VisibilityHidden:           0,
	models.VisibilityAccepting:        1,
	models.VisibilityClosed:           2,
	models.VisibilityResultsPublished: 3,
}

// MajorEditFields are the published-assignment fields whose modification
// requires a reason and elevated-approval bookkeeping.
var MajorEditFields = map[string]struct{}{
	"max_marks":   {},
	"bucket":      {},
	"due_at":      {},
	"late_policy": {},
}

// CanTransition reports whether status may move from one state to the other.
func CanTransition(from, to models.Status) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanAdvanceVisibility reports whether visibility may move from one state to
// the other given the current status. Visibility only moves forward, and only
// a published assignment may leave Hidden.
func CanAdvanceVisibility(status models.Status, from, to models.Visibility) bool {
	fromRank, ok := visibilityOrder[from]
	if !ok {
		return false
	}
	toRank, ok := visibilityOrder[to]
	if !ok {
		return false
	}
	if toRank <= fromRank {
		return false
	}
	if status != models.StatusPublished {
		return false
	}
	return true
}

// IsValidVisibility reports whether the value names a known visibility state.
func IsValidVisibility(v models.Visibility) bool {
	_, ok := visibilityOrder[v]
	return ok
}

// IsMajorEdit reports whether an update to a published assignment touches a
// field classified as major.
func IsMajorEdit(status models.Status, changedFields []string) bool {
	if status != models.StatusPublished {
		return false
	}
	for _, field := range changedFields {
		if _, ok := MajorEditFields[field]; ok {
			return true
		}
	}
	return false
}
