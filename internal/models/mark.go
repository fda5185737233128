package models

import (
	"time"

	"gorm.io/datatypes"
)

// Mark is the recorded raw result for one student on one assignment. The raw
// value is the value of record; scaled marks are derived on read and never
// stored authoritatively.
type Mark struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	AssignmentID  uint              `gorm:"not null;uniqueIndex:idx_marks_assignment_student,priority:1" json:"assignment_id"`
	StudentRollNo string            `gorm:"size:32;not null;uniqueIndex:idx_marks_assignment_student,priority:2" json:"student_roll_no"`
	SubmissionID  *uint             `json:"submission_id"`
	EvaluatorID   string            `gorm:"size:64;index" json:"evaluator_id"`
	RawMarks      float64           `gorm:"not null" json:"raw_marks"`
	MaxMarks      float64           `gorm:"not null" json:"max_marks"`
	Breakdown     datatypes.JSONMap `gorm:"type:json" json:"breakdown"`
	Comments      string            `gorm:"type:text" json:"comments"`
	IsExcused     bool              `gorm:"not null;default:false" json:"is_excused"`
	ExcuseReason  string            `gorm:"size:255" json:"excuse_reason"`
	GradedAt      time.Time         `json:"graded_at"`
	GradedBy      string            `gorm:"size:64" json:"graded_by"`
	Moderated     bool              `gorm:"not null;default:false" json:"moderated"`
	ModeratedAt   *time.Time        `json:"moderated_at"`
	ModeratedBy   string            `gorm:"size:64" json:"moderated_by"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
