package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions recorded by the allocation workflow.
const (
	ActivityRequestSubmitted    = "request.submitted"
	ActivityRequestApproved     = "request.approved"
	ActivityRequestRejected     = "request.rejected"
	ActivityAllocationMoved     = "allocation.moved"
	ActivityOccupancyReconciled = "occupancy.reconciled"
)

// Entity types an audit entry can point at.
const (
	EntityHostelRequest = "hostel_request"
	EntityAllocation    = "allocation"
	EntityRoom          = "room"
)

var knownActivities = map[string]struct{}{
	ActivityRequestSubmitted:    {},
	ActivityRequestApproved:     {},
	ActivityRequestRejected:     {},
	ActivityAllocationMoved:     {},
	ActivityOccupancyReconciled: {},
}

var knownEntities = map[string]struct{}{
	EntityHostelRequest: {},
	EntityAllocation:    {},
	EntityRoom:          {},
}

// IsKnownActivity reports whether action belongs to the audit vocabulary.
func IsKnownActivity(action string) bool {
	_, ok := knownActivities[action]
	return ok
}

// IsKnownEntity reports whether entityType can be audited.
func IsKnownEntity(entityType string) bool {
	_, ok := knownEntities[entityType]
	return ok
}

// ActivityLog captures auditable events on requests, allocations and rooms.
type ActivityLog struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ActorID       uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole     string            `gorm:"size:32;not null" json:"actor_role"`
	Action        string            `gorm:"size:64;not null;index" json:"action"`
	EntityType    string            `gorm:"size:64;not null;index:idx_activity_entity" json:"entity_type"`
	EntityID      *uint             `gorm:"index:idx_activity_entity" json:"entity_id"`
	CorrelationID string            `gorm:"size:64;index" json:"correlation_id,omitempty"`
	Metadata      datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
}
