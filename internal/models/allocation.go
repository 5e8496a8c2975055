package models

import "time"

// Allocation links a student to the room they have been placed in.
type Allocation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StudentID   uint      `gorm:"not null;uniqueIndex" json:"student_id"`
	RoomID      uint      `gorm:"not null;index" json:"room_id"`
	AllocatedAt time.Time `gorm:"not null" json:"allocated_at"`
	Notes       string    `gorm:"type:text" json:"notes"`
	Student     Student   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Room        Room      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"room"`
}
