package dto

import (
	"time"

	"github.com/noah-isme/hostel-allocation-api/internal/models"
)

// HostelResponse describes a hostel with its free bed count.
type HostelResponse struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Gender        string    `json:"gender"`
	GenderDisplay string    `json:"gender_display"`
	Description   string    `json:"description"`
	AvailableBeds int64     `json:"available_beds"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewHostelResponse converts a hostel model to DTO.
func NewHostelResponse(hostel models.Hostel, availableBeds int64) HostelResponse {
	return HostelResponse{
		ID:            hostel.ID,
		Name:          hostel.Name,
		Gender:        string(hostel.Gender),
		GenderDisplay: hostel.Gender.Display(),
		Description:   hostel.Description,
		AvailableBeds: availableBeds,
		CreatedAt:     hostel.CreatedAt,
	}
}

// AvailableRoomsRequest filters the available-rooms listing. Gender is set by
// the server for student callers and restricts the listing to their hostels.
type AvailableRoomsRequest struct {
	HostelID uint          `query:"hostel_id" validate:"required,gt=0"`
	Capacity int           `query:"capacity" validate:"required,oneof=2 4 6"`
	Gender   models.Gender `query:"-"`
}

// RoomResponse renders a room with its occupancy.
type RoomResponse struct {
	RoomID        uint   `json:"room_id"`
	HostelID      uint   `json:"hostel_id"`
	HostelName    string `json:"hostel_name"`
	Label         string `json:"label"`
	RoomNumber    string `json:"room_number"`
	Floor         string `json:"floor"`
	FloorDisplay  string `json:"floor_display"`
	Occupancy     int    `json:"occupancy"`
	Capacity      int    `json:"capacity"`
	AvailableBeds int    `json:"available_beds"`
}

// NewRoomResponse converts a room, with its floor and hostel loaded, to DTO.
func NewRoomResponse(room models.Room) RoomResponse {
	return RoomResponse{
		RoomID:        room.ID,
		HostelID:      room.HostelID(),
		HostelName:    room.Floor.Hostel.Name,
		Label:         room.Label(),
		RoomNumber:    room.RoomNumber,
		Floor:         room.Floor.FloorType,
		FloorDisplay:  models.FloorDisplay(room.Floor.FloorType),
		Occupancy:     room.CurrentOccupancy,
		Capacity:      room.Capacity,
		AvailableBeds: room.AvailableBeds(),
	}
}

// NewRoomResponseSlice converts a slice of rooms.
func NewRoomResponseSlice(rooms []models.Room) []RoomResponse {
	out := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, NewRoomResponse(room))
	}
	return out
}

// HostelOccupancyResponse is one row of the occupancy summary.
type HostelOccupancyResponse struct {
	HostelID       uint   `json:"hostel_id"`
	Name           string `json:"name"`
	Gender         string `json:"gender"`
	TotalRooms     int64  `json:"total_rooms"`
	AvailableRooms int64  `json:"available_rooms"`
	TotalCapacity  int64  `json:"total_capacity"`
	Occupied       int64  `json:"occupied"`
	Available      int64  `json:"available"`
	PercentFull    int    `json:"percent_full"`
}

// OccupancySummaryResponse aggregates occupancy across hostels.
type OccupancySummaryResponse struct {
	Hostels       []HostelOccupancyResponse `json:"hostels"`
	TotalCapacity int64                     `json:"total_capacity"`
	Occupied      int64                     `json:"occupied"`
	Available     int64                     `json:"available"`
	PercentFull   int                       `json:"percent_full"`
	GeneratedAt   time.Time                 `json:"generated_at"`
}

// PercentFull floors occupied/total*100 and reports 0 for an empty hostel.
func PercentFull(occupied, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(occupied * 100 / total)
}
