package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/acadops/assignment-api/internal/models"
)

// AuditListRequest filters the audit ledger.
type AuditListRequest struct {
	AssignmentID uint   `query:"assignment_id"`
	OfferingID   uint   `query:"offering_id"`
	ActorID      string `query:"actor_id"`
	Operation    string `query:"operation"`
	Page         int    `query:"page"`
	PageSize     int    `query:"page_size"`
}

// AuditEntryResponse is the serialized ledger row.
type AuditEntryResponse struct {
	ID            uint              `json:"id"`
	AssignmentID  uint              `json:"assignment_id"`
	OfferingID    uint              `json:"offering_id"`
	ActorID       string            `json:"actor_id"`
	ActorRole     string            `json:"actor_role"`
	Operation     string            `json:"operation"`
	Scope         string            `json:"scope"`
	Before        datatypes.JSONMap `json:"before,omitempty"`
	After         datatypes.JSONMap `json:"after,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Elevated      bool              `json:"elevated"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// AuditListResponse pairs a page of ledger rows with pagination meta.
type AuditListResponse struct {
	Items      []AuditEntryResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// NewAuditEntryResponse converts a model into a DTO.
func NewAuditEntryResponse(model models.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:            model.ID,
		AssignmentID:  model.AssignmentID,
		OfferingID:    model.OfferingID,
		ActorID:       model.ActorID,
		ActorRole:     model.ActorRole,
		Operation:     model.Operation,
		Scope:         model.Scope,
		Before:        model.Before,
		After:         model.After,
		Reason:        model.Reason,
		Source:        model.Source,
		CorrelationID: model.CorrelationID,
		Elevated:      model.Elevated,
		OccurredAt:    model.OccurredAt,
	}
}

// SnapshotResponse is the serialized snapshot header; state is included only
// on single-snapshot reads.
type SnapshotResponse struct {
	ID           uint           `json:"id"`
	AssignmentID uint           `json:"assignment_id"`
	Sequence     int            `json:"sequence"`
	Trigger      string         `json:"trigger"`
	Note         string         `json:"note,omitempty"`
	State        datatypes.JSON `json:"state,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	CreatedBy    string         `json:"created_by"`
}

// NewSnapshotResponse converts a model into a DTO, optionally embedding the
// serialized state.
func NewSnapshotResponse(model models.Snapshot, includeState bool) SnapshotResponse {
	response := SnapshotResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		Sequence:     model.Sequence,
		Trigger:      model.Trigger,
		Note:         model.Note,
		CreatedAt:    model.CreatedAt,
		CreatedBy:    model.CreatedBy,
	}
	if includeState {
		response.State = model.State
	}
	return response
}

// RollbackRequest restores an assignment to a prior snapshot.
type RollbackRequest struct {
	SnapshotID uint   `json:"snapshot_id" validate:"required,gt=0"`
	Note       string `json:"note"`
}
