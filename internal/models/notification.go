package models

import "time"

// Notification types pushed to students.
const (
	NotificationRequestApproved = "request_approved"
	NotificationRequestRejected = "request_rejected"
	NotificationRoomChanged     = "room_changed"
)

// Notification is an inbox message addressed to a single student, optionally
// tied to the hostel request that triggered it.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	StudentID uint       `gorm:"not null;index:idx_notification_inbox" json:"student_id"`
	RequestID *uint      `gorm:"index" json:"request_id,omitempty"`
	Type      string     `gorm:"size:32;not null" json:"type"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	ReadAt    *time.Time `gorm:"index:idx_notification_inbox" json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsRead reports whether the student has opened the notification.
func (n Notification) IsRead() bool {
	return n.ReadAt != nil
}
