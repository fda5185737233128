package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Snapshot triggers.
const (
	SnapshotTriggerCreate   = "create"
	SnapshotTriggerPublish  = "publish"
	SnapshotTriggerEdit     = "edit"
	SnapshotTriggerRollback = "rollback"
	SnapshotTriggerManual   = "manual"
)

// SnapshotRetention is the number of snapshots kept per assignment; the
// oldest is evicted once the bound is exceeded.
const SnapshotRetention = 100

// Snapshot is a full serialized copy of an assignment's state at a point in
// time, kept for rollback. References but does not own the assignment.
type Snapshot struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	AssignmentID uint           `gorm:"not null;index" json:"assignment_id"`
	Sequence     int            `gorm:"not null" json:"sequence"`
	Trigger      string         `gorm:"size:16;not null" json:"trigger"`
	State        datatypes.JSON `gorm:"not null" json:"state"`
	Note         string         `gorm:"size:255" json:"note"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	CreatedBy    string         `gorm:"size:64" json:"created_by"`
}

// AssignmentState is the canonical value object captured by a snapshot: the
// assignment row plus the child collections it exclusively owns. Encoding and
// decoding go through a single pair so round-tripping is lossless regardless
// of the storage format.
type AssignmentState struct {
	Assignment Assignment         `json:"assignment"`
	COMappings []COMapping        `json:"co_mappings"`
	Rubrics    []RubricAttachment `json:"rubrics"`
	Evaluators []Evaluator        `json:"evaluators"`
}

// CaptureState builds the canonical state value from a loaded assignment.
func CaptureState(assignment Assignment) AssignmentState {
	state := AssignmentState{
		Assignment: assignment,
		COMappings: assignment.COMappings,
		Rubrics:    assignment.Rubrics,
		Evaluators: assignment.Evaluators,
	}
	// Children live beside the row in the state object, not nested in it.
	state.Assignment.COMappings = nil
	state.Assignment.Rubrics = nil
	state.Assignment.Evaluators = nil
	state.Assignment.Groups = nil
	return state
}

// Encode serializes the state through the canonical encoder.
func (s AssignmentState) Encode() (datatypes.JSON, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode assignment state: %w", err)
	}
	return datatypes.JSON(payload), nil
}

// DecodeState is the inverse of AssignmentState.Encode. Unknown fields are
// rejected so a snapshot written by a newer schema fails loudly.
func DecodeState(raw datatypes.JSON) (AssignmentState, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	var state AssignmentState
	if err := decoder.Decode(&state); err != nil {
		return AssignmentState{}, fmt.Errorf("decode assignment state: %w", err)
	}
	return state, nil
}
