package dto

import (
	"time"

	"github.com/noah-isme/hostel-allocation-api/internal/models"
)

// HostelRequestCreateRequest is the student payload for applying to a hostel.
type HostelRequestCreateRequest struct {
	HostelID          uint   `json:"hostel_id" validate:"required,gt=0"`
	PreferredCapacity int    `json:"preferred_capacity" validate:"required,oneof=2 4 6"`
	PreferredRoomID   *uint  `json:"preferred_room_id" validate:"omitempty,gt=0"`
	Note              string `json:"note" validate:"omitempty,max=1000"`
}

// HostelRequestResponse serializes a hostel request.
type HostelRequestResponse struct {
	ID                uint          `json:"id"`
	StudentID         uint          `json:"student_id"`
	MatricNo          string        `json:"matric_no,omitempty"`
	StudentName       string        `json:"student_name,omitempty"`
	HostelID          uint          `json:"hostel_id"`
	HostelName        string        `json:"hostel_name,omitempty"`
	PreferredCapacity int           `json:"preferred_capacity"`
	PreferredRoom     *RoomResponse `json:"preferred_room,omitempty"`
	Status            string        `json:"status"`
	Active            bool          `json:"active"`
	Note              string        `json:"note"`
	ReviewedBy        *uint         `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time    `json:"reviewed_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// NewHostelRequestResponse converts a request model. Associations are optional.
func NewHostelRequestResponse(request models.HostelRequest) HostelRequestResponse {
	response := HostelRequestResponse{
		ID:                request.ID,
		StudentID:         request.StudentID,
		MatricNo:          request.Student.MatricNo,
		StudentName:       request.Student.FullName,
		HostelID:          request.HostelID,
		HostelName:        request.Hostel.Name,
		PreferredCapacity: request.PreferredCapacity,
		Status:            string(request.Status),
		Active:            request.Status.IsActive(),
		Note:              request.Note,
		ReviewedBy:        request.ReviewedBy,
		ReviewedAt:        request.ReviewedAt,
		CreatedAt:         request.CreatedAt,
		UpdatedAt:         request.UpdatedAt,
	}
	if request.PreferredRoom != nil && request.PreferredRoom.ID != 0 {
		room := NewRoomResponse(*request.PreferredRoom)
		response.PreferredRoom = &room
	}
	return response
}

// RequestListRequest filters the staff request listing.
type RequestListRequest struct {
	Page     int
	PageSize int
	HostelID uint
	Status   string `validate:"omitempty,oneof=PENDING APPROVED REJECTED"`
}

// RequestCountsResponse totals requests per status.
type RequestCountsResponse struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// RequestListResponse wraps paginated requests with their status counts.
type RequestListResponse struct {
	Items      []HostelRequestResponse `json:"items"`
	Counts     RequestCountsResponse   `json:"counts"`
	Pagination PaginationMeta          `json:"pagination"`
}

// Decision outcomes reported by approve, reject and batch operations.
const (
	OutcomeApproved   = "approved"
	OutcomeMoved      = "moved"
	OutcomeUnchanged  = "unchanged"
	OutcomeRejected   = "rejected"
	OutcomeNoRoom     = "no_room"
	OutcomeNotFound   = "not_found"
	OutcomeClosed     = "closed"
	OutcomeIneligible = "ineligible"
	OutcomeFailed     = "failed"
)

// DecisionResponse reports the result of a staff decision on one request.
type DecisionResponse struct {
	Outcome    string                `json:"outcome"`
	Request    HostelRequestResponse `json:"request"`
	Allocation *AllocationResponse   `json:"allocation,omitempty"`
}

// BatchDecisionRequest lists the requests a staff member decides in bulk.
type BatchDecisionRequest struct {
	RequestIDs []uint `json:"request_ids" validate:"required,min=1,max=100,dive,gt=0"`
}

// BatchItemResult is the per-request result of a batch decision.
type BatchItemResult struct {
	RequestID uint   `json:"request_id"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
}

// BatchDecisionResponse aggregates per-item results and outcome counts.
type BatchDecisionResponse struct {
	Results []BatchItemResult `json:"results"`
	Counts  map[string]int    `json:"counts"`
}
