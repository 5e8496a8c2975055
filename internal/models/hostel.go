package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrOccupancyInvariant signals a room whose occupancy left the [0, capacity] range.
var ErrOccupancyInvariant = errors.New("room occupancy invariant violated")

// Floor types available inside a hostel.
const (
	FloorGround = "GF"
	FloorFirst  = "FF"
	FloorSecond = "SF"
)

// Room capacities supported by the hostels.
const (
	RoomCapacityTwo  = 2
	RoomCapacityFour = 4
	RoomCapacitySix  = 6
)

// IsValidCapacity reports whether the bed count is one of the supported room sizes.
func IsValidCapacity(capacity int) bool {
	switch capacity {
	case RoomCapacityTwo, RoomCapacityFour, RoomCapacitySix:
		return true
	default:
		return false
	}
}

// FloorLevel returns the vertical position of a floor type, used for stable room ordering.
func FloorLevel(floorType string) int {
	switch floorType {
	case FloorGround:
		return 0
	case FloorFirst:
		return 1
	case FloorSecond:
		return 2
	default:
		return 99
	}
}

// FloorDisplay returns the human readable floor name.
func FloorDisplay(floorType string) string {
	switch floorType {
	case FloorGround:
		return "Ground Floor"
	case FloorFirst:
		return "First Floor"
	case FloorSecond:
		return "Second Floor"
	default:
		return floorType
	}
}

// Hostel is a single-gender residence made of floors and rooms.
type Hostel struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Gender      Gender    `gorm:"size:1;not null;index" json:"gender"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Floors      []Floor   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"floors,omitempty"`
}

// Floor belongs to exactly one hostel.
type Floor struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	HostelID  uint   `gorm:"not null;uniqueIndex:idx_floor_hostel_type" json:"hostel_id"`
	FloorType string `gorm:"size:2;not null;uniqueIndex:idx_floor_hostel_type" json:"floor_type"`
	Level     int    `gorm:"not null;default:0" json:"level"`
	Hostel    Hostel `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Rooms     []Room `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"rooms,omitempty"`
}

// BeforeSave keeps the ordering level in sync with the floor type.
func (f *Floor) BeforeSave(_ *gorm.DB) error {
	f.Level = FloorLevel(f.FloorType)
	return nil
}

// Room is a bookable room with a fixed number of beds.
type Room struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	FloorID          uint      `gorm:"not null;uniqueIndex:idx_room_floor_number" json:"floor_id"`
	RoomNumber       string    `gorm:"size:10;not null;uniqueIndex:idx_room_floor_number" json:"room_number"`
	Capacity         int       `gorm:"not null" json:"capacity"`
	CurrentOccupancy int       `gorm:"not null;default:0" json:"current_occupancy"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Floor            Floor     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsFull reports whether every bed in the room is taken.
func (r Room) IsFull() bool {
	return r.CurrentOccupancy >= r.Capacity
}

// AvailableBeds returns the number of free beds, never negative.
func (r Room) AvailableBeds() int {
	if r.CurrentOccupancy >= r.Capacity {
		return 0
	}
	return r.Capacity - r.CurrentOccupancy
}

// HostelID returns the owning hostel, which requires the Floor association to be loaded.
func (r Room) HostelID() uint {
	return r.Floor.HostelID
}

// Label renders the room the way staff refer to it, e.g. "Mary GF 101 (1/2)".
func (r Room) Label() string {
	return fmt.Sprintf("%s %s %s (%d/%d)", r.Floor.Hostel.Name, r.Floor.FloorType, r.RoomNumber, r.CurrentOccupancy, r.Capacity)
}

// CheckInvariant verifies 0 <= occupancy <= capacity.
func (r Room) CheckInvariant() error {
	if r.CurrentOccupancy < 0 || r.CurrentOccupancy > r.Capacity {
		return fmt.Errorf("%w: room %d has %d/%d", ErrOccupancyInvariant, r.ID, r.CurrentOccupancy, r.Capacity)
	}
	return nil
}
