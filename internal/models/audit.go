package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit operations.
const (
	AuditOpCreate           = "create"
	AuditOpUpdate           = "update"
	AuditOpPublish          = "publish"
	AuditOpArchive          = "archive"
	AuditOpDeactivate       = "deactivate"
	AuditOpDelete           = "delete"
	AuditOpRollback         = "rollback"
	AuditOpVisibilityChange = "visibility_change"
	AuditOpAttachRubric     = "attach_rubric"
	AuditOpMapOutcome       = "map_outcome"
	AuditOpAssignEvaluator  = "assign_evaluator"
	AuditOpExtensionRequest = "extension_request"
	AuditOpExtensionDecide  = "extension_decide"
)

// Audit sources.
const (
	AuditSourceAPI    = "api"
	AuditSourceImport = "import"
	AuditSourceSystem = "system"
)

// AuditEntry is one immutable row in the append-only change ledger. Entries
// are never updated or deleted; they survive independently of the assignment
// they reference.
type AuditEntry struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	AssignmentID  uint              `gorm:"not null;index" json:"assignment_id"`
	OfferingID    uint              `gorm:"not null;index" json:"offering_id"`
	ActorID       string            `gorm:"size:64;not null;index" json:"actor_id"`
	ActorRole     string            `gorm:"size:32;not null" json:"actor_role"`
	Operation     string            `gorm:"size:32;not null;index" json:"operation"`
	Scope         string            `gorm:"size:32;not null" json:"scope"`
	Before        datatypes.JSONMap `gorm:"type:json" json:"before"`
	After         datatypes.JSONMap `gorm:"type:json" json:"after"`
	Reason        string            `gorm:"type:text" json:"reason"`
	Source        string            `gorm:"size:16;not null;default:api" json:"source"`
	CorrelationID string            `gorm:"size:64" json:"correlation_id"`
	Elevated      bool              `gorm:"not null;default:false" json:"elevated"`
	OccurredAt    time.Time         `gorm:"autoCreateTime;index" json:"occurred_at"`
}
