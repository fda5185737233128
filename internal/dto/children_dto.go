package dto

import (
	"time"

	"github.com/acadops/assignment-api/internal/models"
)

// COMappingRequest sets the correlation for one course outcome.
type COMappingRequest struct {
	COCode      string `json:"co_code" validate:"required,max=16"`
	Correlation int    `json:"correlation" validate:"gte=0"`
}

// COMappingResponse is the serialized CO mapping.
type COMappingResponse struct {
	ID           uint   `json:"id"`
	AssignmentID uint   `json:"assignment_id"`
	COCode       string `json:"co_code"`
	Correlation  int    `json:"correlation"`
}

// NewCOMappingResponse converts a model into a DTO.
func NewCOMappingResponse(model models.COMapping) COMappingResponse {
	return COMappingResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		COCode:       model.COCode,
		Correlation:  model.Correlation,
	}
}

// RubricAttachRequest attaches a catalog rubric to an assignment.
type RubricAttachRequest struct {
	RubricID      uint    `json:"rubric_id" validate:"required,gt=0"`
	Mode          string  `json:"mode" validate:"required,oneof=A B"`
	WeightPercent float64 `json:"weight_percent" validate:"gte=0,lte=100"`
	RubricVersion string  `json:"rubric_version"`
}

// RubricAttachmentResponse is the serialized rubric attachment.
type RubricAttachmentResponse struct {
	ID            uint              `json:"id"`
	AssignmentID  uint              `json:"assignment_id"`
	RubricID      uint              `json:"rubric_id"`
	Mode          models.RubricMode `json:"mode"`
	WeightPercent float64           `json:"weight_percent"`
	RubricVersion string            `json:"rubric_version,omitempty"`
	Sequence      int               `json:"sequence"`
}

// NewRubricAttachmentResponse converts a model into a DTO.
func NewRubricAttachmentResponse(model models.RubricAttachment) RubricAttachmentResponse {
	return RubricAttachmentResponse{
		ID:            model.ID,
		AssignmentID:  model.AssignmentID,
		RubricID:      model.RubricID,
		Mode:          model.Mode,
		WeightPercent: model.WeightPercent,
		RubricVersion: model.RubricVersion,
		Sequence:      model.Sequence,
	}
}

// EvaluatorRequest links a faculty member as evaluator.
type EvaluatorRequest struct {
	FacultyID    string `json:"faculty_id" validate:"required,max=64"`
	Role         string `json:"role" validate:"omitempty,oneof=subject_in_charge subject_faculty mentor external_examiner evaluator"`
	CanEditMarks *bool  `json:"can_edit_marks"`
	CanModerate  *bool  `json:"can_moderate"`
}

// EvaluatorResponse is the serialized evaluator link.
type EvaluatorResponse struct {
	ID           uint      `json:"id"`
	AssignmentID uint      `json:"assignment_id"`
	FacultyID    string    `json:"faculty_id"`
	Role         string    `json:"role"`
	CanEditMarks bool      `json:"can_edit_marks"`
	CanModerate  bool      `json:"can_moderate"`
	AssignedAt   time.Time `json:"assigned_at"`
	AssignedBy   string    `json:"assigned_by,omitempty"`
}

// NewEvaluatorResponse converts a model into a DTO.
func NewEvaluatorResponse(model models.Evaluator) EvaluatorResponse {
	return EvaluatorResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		FacultyID:    model.FacultyID,
		Role:         model.Role,
		CanEditMarks: model.CanEditMarks,
		CanModerate:  model.CanModerate,
		AssignedAt:   model.AssignedAt,
		AssignedBy:   model.AssignedBy,
	}
}
