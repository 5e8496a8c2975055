package dto

import (
	"time"

	"github.com/noah-isme/hostel-allocation-api/internal/models"
)

// AllocationResponse serializes a student's room allocation.
type AllocationResponse struct {
	ID          uint         `json:"id"`
	StudentID   uint         `json:"student_id"`
	MatricNo    string       `json:"matric_no,omitempty"`
	StudentName string       `json:"student_name,omitempty"`
	Room        RoomResponse `json:"room"`
	AllocatedAt time.Time    `json:"allocated_at"`
	Notes       string       `json:"notes,omitempty"`
}

// NewAllocationResponse converts an allocation with its room, floor and hostel loaded.
func NewAllocationResponse(allocation models.Allocation) AllocationResponse {
	room := NewRoomResponse(allocation.Room)
	room.RoomID = allocation.RoomID
	return AllocationResponse{
		ID:          allocation.ID,
		StudentID:   allocation.StudentID,
		MatricNo:    allocation.Student.MatricNo,
		StudentName: allocation.Student.FullName,
		Room:        room,
		AllocatedAt: allocation.AllocatedAt,
		Notes:       allocation.Notes,
	}
}

// AllocationListRequest filters the allocation overview.
type AllocationListRequest struct {
	Page     int
	PageSize int
	HostelID uint
}

// AllocationListResponse wraps paginated allocations.
type AllocationListResponse struct {
	Items      []AllocationResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// OccupancyRepair describes one room touched by reconciliation.
type OccupancyRepair struct {
	RoomID    uint `json:"room_id"`
	Capacity  int  `json:"capacity"`
	Recorded  int  `json:"recorded"`
	Allocated int  `json:"allocated"`
}

// ReconcileResponse reports the result of an occupancy reconciliation run.
type ReconcileResponse struct {
	Repaired []OccupancyRepair `json:"repaired"`
	Breaches []OccupancyRepair `json:"breaches"`
}
