package models

import "time"

// Approval types and statuses.
const (
	ApprovalTypePublish   = "publish"
	ApprovalTypeMajorEdit = "major_edit"
	ApprovalTypeClassDrop = "drop_class_wide"

	ApprovalStatusPending   = "pending"
	ApprovalStatusApproved  = "approved"
	ApprovalStatusDenied    = "denied"
	ApprovalStatusCancelled = "cancelled"
)

// Approval tracks elevated-approval bookkeeping for gated operations. The
// requirement is recorded here; resolving it is handled by the approval
// workflow surface, not this service.
type Approval struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AssignmentID uint       `gorm:"not null;index" json:"assignment_id"`
	Type         string     `gorm:"size:32;not null;index" json:"type"`
	Reason       string     `gorm:"type:text;not null" json:"reason"`
	Status       string     `gorm:"size:16;not null;default:pending;index" json:"status"`
	RequestedBy  string     `gorm:"size:64;not null" json:"requested_by"`
	RequestedAt  time.Time  `json:"requested_at"`
	ApproverID   string     `gorm:"size:64" json:"approver_id"`
	ApproverRole string     `gorm:"size:32" json:"approver_role"`
	DecidedAt    *time.Time `json:"decided_at"`
	DecisionNote string     `gorm:"size:255" json:"decision_note"`
}
