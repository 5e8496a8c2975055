package dto

import (
	"math"
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/hostel-allocation-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationMeta computes page counts for a listing.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	if page < 1 {
		page = 1
	}
	meta := PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total, TotalPages: 1}
	if pageSize > 0 {
		meta.TotalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return meta
}

// AdminActivityListRequest defines filters for retrieving activity logs.
type AdminActivityListRequest struct {
	Page       int
	PageSize   int
	ActorID    uint
	Action     string
	EntityType string
	EntityID   uint
	Since      *time.Time
}

// RequestHistoryResponse lists the audit trail of a single hostel request.
type RequestHistoryResponse struct {
	RequestID uint                    `json:"request_id"`
	Events    []AdminActivityResponse `json:"events"`
}

// AdminActivityResponse serializes activity log entries.
type AdminActivityResponse struct {
	ID            uint                   `json:"id"`
	ActorID       uint                   `json:"actor_id"`
	ActorRole     string                 `json:"actor_role"`
	Action        string                 `json:"action"`
	EntityType    string                 `json:"entity_type"`
	EntityID      *uint                  `json:"entity_id"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata"`
	CreatedAt     time.Time              `json:"created_at"`
}

// AdminActivityListResponse wraps paginated activity logs.
type AdminActivityListResponse struct {
	Items      []AdminActivityResponse `json:"items"`
	Pagination PaginationMeta          `json:"pagination"`
}

func metadataFromJSON(data datatypes.JSONMap) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}(data)
}

// NewAdminActivityResponse converts a model into an activity DTO.
func NewAdminActivityResponse(entry models.ActivityLog) AdminActivityResponse {
	return AdminActivityResponse{
		ID:            entry.ID,
		ActorID:       entry.ActorID,
		ActorRole:     entry.ActorRole,
		Action:        entry.Action,
		EntityType:    entry.EntityType,
		EntityID:      entry.EntityID,
		CorrelationID: entry.CorrelationID,
		Metadata:      metadataFromJSON(entry.Metadata),
		CreatedAt:     entry.CreatedAt,
	}
}
