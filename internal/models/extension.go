package models

import "time"

// Extension request statuses.
const (
	ExtensionStatusPending  = "pending"
	ExtensionStatusApproved = "approved"
	ExtensionStatusDenied   = "denied"
)

// Extension is a per-student due-date extension request.
type Extension struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	AssignmentID  uint       `gorm:"not null;index" json:"assignment_id"`
	StudentRollNo string     `gorm:"size:32;not null;index" json:"student_roll_no"`
	NewDueAt      time.Time  `gorm:"not null" json:"new_due_at"`
	Reason        string     `gorm:"type:text;not null" json:"reason"`
	Status        string     `gorm:"size:16;not null;default:pending;index" json:"status"`
	DecidedBy     string     `gorm:"size:64" json:"decided_by"`
	DecidedAt     *time.Time `json:"decided_at"`
	DecisionNote  string     `gorm:"size:255" json:"decision_note"`
	RequestedAt   time.Time  `json:"requested_at"`
	RequestedBy   string     `gorm:"size:64" json:"requested_by"`
}
