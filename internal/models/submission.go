package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission statuses.
const (
	SubmissionStatusDraft       = "draft"
	SubmissionStatusSubmitted   = "submitted"
	SubmissionStatusUnderReview = "under_review"
	SubmissionStatusGraded      = "graded"
	SubmissionStatusReturned    = "returned"
)

// Submission is one student's submission for an assignment.
type Submission struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	AssignmentID  uint              `gorm:"not null;uniqueIndex:idx_submissions_assignment_student,priority:1" json:"assignment_id"`
	StudentRollNo string            `gorm:"size:32;not null;uniqueIndex:idx_submissions_assignment_student,priority:2" json:"student_roll_no"`
	GroupID       *uint             `json:"group_id"`
	Type          string            `gorm:"size:32;not null" json:"type"`
	Payload       datatypes.JSONMap `gorm:"type:json" json:"payload"`
	SubmittedAt   time.Time         `json:"submitted_at"`
	IsLate        bool              `gorm:"not null;default:false" json:"is_late"`
	LatePenalty   float64           `gorm:"not null;default:0" json:"late_penalty"`
	Status        string            `gorm:"size:32;not null;default:submitted;index" json:"status"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// IsGraded reports whether the submission has been evaluated.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}
