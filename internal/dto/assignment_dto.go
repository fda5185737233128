package dto

import (
	"encoding/json"
	"time"

	"github.com/acadops/assignment-api/internal/models"
)

// AssignmentCreateRequest describes the payload for creating a draft
// assignment. Policy blocks arrive as raw JSON and are decoded strictly
// against their typed shapes; omitted blocks take defaults.
type AssignmentCreateRequest struct {
	OfferingID       uint            `json:"offering_id" validate:"required,gt=0"`
	Number           int             `json:"number" validate:"required,gte=1"`
	Title            string          `json:"title" validate:"required,min=3,max=255"`
	Description      string          `json:"description"`
	Bucket           string          `json:"bucket" validate:"required,oneof=Internal External"`
	MaxMarks         float64         `json:"max_marks" validate:"required,gt=0"`
	DueAt            string          `json:"due_at" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	GraceMinutes     *int            `json:"grace_minutes" validate:"omitempty,gte=0"`
	SubmissionRules  json.RawMessage `json:"submission_rules"`
	LatePolicy       json.RawMessage `json:"late_policy"`
	ExtensionPolicy  json.RawMessage `json:"extension_policy"`
	GroupPolicy      json.RawMessage `json:"group_policy"`
	MentoringPolicy  json.RawMessage `json:"mentoring_policy"`
	PlagiarismPolicy json.RawMessage `json:"plagiarism_policy"`
	DropPolicy       json.RawMessage `json:"drop_policy"`
}

// AssignmentUpdateRequest describes a partial update. Changing a major field
// on a published assignment requires Reason.
type AssignmentUpdateRequest struct {
	Title            *string         `json:"title" validate:"omitempty,min=3,max=255"`
	Description      *string         `json:"description"`
	Bucket           *string         `json:"bucket" validate:"omitempty,oneof=Internal External"`
	MaxMarks         *float64        `json:"max_marks" validate:"omitempty,gt=0"`
	DueAt            *string         `json:"due_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	GraceMinutes     *int            `json:"grace_minutes" validate:"omitempty,gte=0"`
	Excluded         *bool           `json:"excluded"`
	SubmissionRules  json.RawMessage `json:"submission_rules"`
	LatePolicy       json.RawMessage `json:"late_policy"`
	ExtensionPolicy  json.RawMessage `json:"extension_policy"`
	GroupPolicy      json.RawMessage `json:"group_policy"`
	MentoringPolicy  json.RawMessage `json:"mentoring_policy"`
	PlagiarismPolicy json.RawMessage `json:"plagiarism_policy"`
	DropPolicy       json.RawMessage `json:"drop_policy"`
	Reason           string          `json:"reason"`
}

// AssignmentListRequest carries the list filter set.
type AssignmentListRequest struct {
	OfferingID   uint   `query:"offering_id"`
	AcademicYear string `query:"academic_year"`
	DegreeCode   string `query:"degree_code"`
	Year         int    `query:"year"`
	Term         int    `query:"term"`
	SubjectCode  string `query:"subject_code"`
	Bucket       string `query:"bucket"`
	Status       string `query:"status"`
	Visibility   string `query:"visibility"`
	Search       string `query:"search"`
	Page         int    `query:"page"`
	PageSize     int    `query:"page_size"`
}

// VisibilityUpdateRequest moves the visibility state forward.
type VisibilityUpdateRequest struct {
	Visibility string `json:"visibility" validate:"required,oneof=Hidden Visible_Accepting Closed Results_Published"`
}

// ArchiveRequest carries the mandatory reason for archival.
type ArchiveRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// PublishRequest carries the optional publish note.
type PublishRequest struct {
	Reason string `json:"reason"`
}

// AssignmentResponse is the serialized representation returned to clients.
type AssignmentResponse struct {
	ID                 uint                       `json:"id"`
	OfferingID         uint                       `json:"offering_id"`
	AcademicYear       string                     `json:"academic_year"`
	DegreeCode         string                     `json:"degree_code"`
	SubjectCode        string                     `json:"subject_code"`
	Year               int                        `json:"year"`
	Term               int                        `json:"term"`
	Number             int                        `json:"number"`
	Title              string                     `json:"title"`
	Description        string                     `json:"description"`
	Bucket             models.Bucket              `json:"bucket"`
	MaxMarks           float64                    `json:"max_marks"`
	DueAt              time.Time                  `json:"due_at"`
	GraceMinutes       int                        `json:"grace_minutes"`
	Status             models.Status              `json:"status"`
	Visibility         models.Visibility          `json:"visibility"`
	ResultsPublishMode string                     `json:"results_publish_mode"`
	Excluded           bool                       `json:"excluded"`
	SubmissionRules    models.SubmissionRules     `json:"submission_rules"`
	LatePolicy         models.LatePolicy          `json:"late_policy"`
	ExtensionPolicy    models.ExtensionPolicy     `json:"extension_policy"`
	GroupPolicy        models.GroupPolicy         `json:"group_policy"`
	MentoringPolicy    models.MentoringPolicy     `json:"mentoring_policy"`
	PlagiarismPolicy   models.PlagiarismPolicy    `json:"plagiarism_policy"`
	DropPolicy         models.DropPolicy          `json:"drop_policy"`
	PublishedAt        *time.Time                 `json:"published_at,omitempty"`
	PublishedBy        string                     `json:"published_by,omitempty"`
	COMappings         []COMappingResponse        `json:"co_mappings,omitempty"`
	Rubrics            []RubricAttachmentResponse `json:"rubrics,omitempty"`
	Evaluators         []EvaluatorResponse        `json:"evaluators,omitempty"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
	UpdatedBy          string                     `json:"updated_by,omitempty"`
}

// AssignmentListResponse pairs a page of assignments with pagination meta.
type AssignmentListResponse struct {
	Items      []AssignmentResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	response := AssignmentResponse{
		ID:                 model.ID,
		OfferingID:         model.OfferingID,
		AcademicYear:       model.AcademicYear,
		DegreeCode:         model.DegreeCode,
		SubjectCode:        model.SubjectCode,
		Year:               model.Year,
		Term:               model.Term,
		Number:             model.Number,
		Title:              model.Title,
		Description:        model.Description,
		Bucket:             model.Bucket,
		MaxMarks:           model.MaxMarks,
		DueAt:              model.DueAt,
		GraceMinutes:       model.GraceMinutes,
		Status:             model.Status,
		Visibility:         model.Visibility,
		ResultsPublishMode: model.ResultsPublishMode,
		Excluded:           model.Excluded,
		SubmissionRules:    model.SubmissionRules.Data(),
		LatePolicy:         model.LatePolicy.Data(),
		ExtensionPolicy:    model.ExtensionPolicy.Data(),
		GroupPolicy:        model.GroupPolicy.Data(),
		MentoringPolicy:    model.MentoringPolicy.Data(),
		PlagiarismPolicy:   model.PlagiarismPolicy.Data(),
		DropPolicy:         model.DropPolicy.Data(),
		PublishedAt:        model.PublishedAt,
		PublishedBy:        model.PublishedBy,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
		UpdatedBy:          model.UpdatedBy,
	}

	for _, mapping := range model.COMappings {
		response.COMappings = append(response.COMappings, NewCOMappingResponse(mapping))
	}
	for _, attachment := range model.Rubrics {
		response.Rubrics = append(response.Rubrics, NewRubricAttachmentResponse(attachment))
	}
	for _, evaluator := range model.Evaluators {
		response.Evaluators = append(response.Evaluators, NewEvaluatorResponse(evaluator))
	}

	return response
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}
	return responses
}
