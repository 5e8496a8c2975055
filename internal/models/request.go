package models

import "time"

// RequestStatus tracks the review lifecycle of a hostel request.
type RequestStatus string

const (
	// RequestStatusPending marks a request awaiting staff review.
	RequestStatusPending RequestStatus = "PENDING"
	// RequestStatusApproved marks a request that produced an allocation.
	RequestStatusApproved RequestStatus = "APPROVED"
	// RequestStatusRejected marks a terminally declined request.
	RequestStatusRejected RequestStatus = "REJECTED"
)

// ActiveRequestStatuses are the statuses that count towards the one-active-request rule.
var ActiveRequestStatuses = []RequestStatus{RequestStatusPending, RequestStatusApproved}

// IsActive reports whether the status blocks the student from submitting another request.
func (s RequestStatus) IsActive() bool {
	return s == RequestStatusPending || s == RequestStatusApproved
}

// HostelRequest is a student's application for a bed in a hostel.
type HostelRequest struct {
	ID                uint          `gorm:"primaryKey" json:"id"`
	StudentID         uint          `gorm:"not null;index" json:"student_id"`
	HostelID          uint          `gorm:"not null;index" json:"hostel_id"`
	PreferredCapacity int           `gorm:"not null" json:"preferred_capacity"`
	PreferredRoomID   *uint         `gorm:"index" json:"preferred_room_id"`
	Status            RequestStatus `gorm:"size:10;not null;default:PENDING;index" json:"status"`
	Note              string        `gorm:"type:text" json:"note"`
	ReviewedBy        *uint         `json:"reviewed_by"`
	ReviewedAt        *time.Time    `json:"reviewed_at"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
	Student           Student       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Hostel            Hostel        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"hostel"`
	PreferredRoom     *Room         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"preferred_room,omitempty"`
}
