package dto

import (
	"time"

	"github.com/acadops/assignment-api/internal/models"
)

// ExtensionRequestPayload asks for a per-student due-date extension.
type ExtensionRequestPayload struct {
	StudentRollNo string `json:"student_roll_no" validate:"required,max=32"`
	NewDueAt      string `json:"new_due_at" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Reason        string `json:"reason"`
}

// ExtensionDecisionPayload approves or denies a pending request.
type ExtensionDecisionPayload struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// ExtensionResponse is the serialized extension request.
type ExtensionResponse struct {
	ID            uint       `json:"id"`
	AssignmentID  uint       `json:"assignment_id"`
	StudentRollNo string     `json:"student_roll_no"`
	NewDueAt      time.Time  `json:"new_due_at"`
	Reason        string     `json:"reason"`
	Status        string     `json:"status"`
	DecidedBy     string     `json:"decided_by,omitempty"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
	DecisionNote  string     `json:"decision_note,omitempty"`
	RequestedAt   time.Time  `json:"requested_at"`
	RequestedBy   string     `json:"requested_by"`
}

// NewExtensionResponse converts a model into a DTO.
func NewExtensionResponse(model models.Extension) ExtensionResponse {
	return ExtensionResponse{
		ID:            model.ID,
		AssignmentID:  model.AssignmentID,
		StudentRollNo: model.StudentRollNo,
		NewDueAt:      model.NewDueAt,
		Reason:        model.Reason,
		Status:        model.Status,
		DecidedBy:     model.DecidedBy,
		DecidedAt:     model.DecidedAt,
		DecisionNote:  model.DecisionNote,
		RequestedAt:   model.RequestedAt,
		RequestedBy:   model.RequestedBy,
	}
}
