package dto

import (
	"time"

	"github.com/noah-isme/hostel-allocation-api/internal/models"
)

// NotificationCreateRequest describes an inbox message for one student.
type NotificationCreateRequest struct {
	StudentID uint   `json:"student_id" validate:"required"`
	RequestID *uint  `json:"request_id,omitempty"`
	Type      string `json:"type" validate:"required,oneof=request_approved request_rejected room_changed"`
	Message   string `json:"message" validate:"required,min=1,max=2000"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint       `json:"id"`
	StudentID uint       `json:"student_id"`
	RequestID *uint      `json:"request_id,omitempty"`
	Type      string     `json:"type"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		StudentID: model.StudentID,
		RequestID: model.RequestID,
		Type:      model.Type,
		Message:   model.Message,
		Read:      model.IsRead(),
		ReadAt:    model.ReadAt,
		CreatedAt: model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}

// NotificationListResponse is a page of the inbox plus its unread count.
type NotificationListResponse struct {
	Items  []NotificationResponse `json:"items"`
	Unread int64                  `json:"unread"`
}

// MarkAllReadResponse reports how many notifications were marked read.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
