package models

import "time"

// Evaluator roles.
const (
	EvaluatorRoleSubjectInCharge  = "subject_in_charge"
	EvaluatorRoleSubjectFaculty   = "subject_faculty"
	EvaluatorRoleMentor           = "mentor"
	EvaluatorRoleExternalExaminer = "external_examiner"
	EvaluatorRoleEvaluator        = "evaluator"
)

// Evaluator links a faculty member to an assignment with grading permissions.
type Evaluator struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AssignmentID uint      `gorm:"not null;uniqueIndex:idx_evaluators_assignment_faculty,priority:1" json:"assignment_id"`
	FacultyID    string    `gorm:"size:64;not null;uniqueIndex:idx_evaluators_assignment_faculty,priority:2" json:"faculty_id"`
	Role         string    `gorm:"size:32;not null;default:evaluator" json:"role"`
	CanEditMarks bool      `gorm:"not null;default:true" json:"can_edit_marks"`
	CanModerate  bool      `gorm:"not null;default:false" json:"can_moderate"`
	AssignedAt   time.Time `json:"assigned_at"`
	AssignedBy   string    `gorm:"size:64" json:"assigned_by"`
}

// IsPrimary reports whether this evaluator is the subject in charge.
func (e Evaluator) IsPrimary() bool {
	return e.Role == EvaluatorRoleSubjectInCharge
}
