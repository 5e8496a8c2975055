package service

import (
	"errors"
	"fmt"

	"github.com/noah-isme/hostel-allocation-api/internal/models"
)

// ErrRequestRejected is wrapped by every eligibility failure of a hostel request.
var ErrRequestRejected = errors.New("hostel request rejected")

var (
	// ErrGenderMismatch indicates the hostel does not accept the student's gender.
	ErrGenderMismatch = fmt.Errorf("%w: student gender must match hostel gender", ErrRequestRejected)
	// ErrRoomNotInHostel indicates the preferred room belongs to another hostel.
	ErrRoomNotInHostel = fmt.Errorf("%w: selected room must be in the selected hostel", ErrRequestRejected)
	// ErrCapacityMismatch indicates the preferred room size differs from the requested size.
	ErrCapacityMismatch = fmt.Errorf("%w: selected room capacity does not match preferred capacity", ErrRequestRejected)
	// ErrRoomFull indicates the preferred room has no free bed.
	ErrRoomFull = fmt.Errorf("%w: selected room is full", ErrRequestRejected)
	// ErrDuplicateActiveRequest indicates the student already has a pending or approved request.
	ErrDuplicateActiveRequest = fmt.Errorf("%w: student already has an active hostel request", ErrRequestRejected)
)

// RequestCandidate is everything needed to decide whether a request may be stored.
// PreferredRoom, when set, must have its Floor loaded.
type RequestCandidate struct {
	Student           models.Student
	Hostel            models.Hostel
	PreferredCapacity int
	PreferredRoom     *models.Room
	ActiveRequests    int64
}

// ValidateHostelRequest applies the eligibility rules in a fixed order and
// returns the first failure.
func ValidateHostelRequest(candidate RequestCandidate) error {
	if candidate.Hostel.Gender != candidate.Student.Gender {
		return fmt.Errorf("%w (hostel %s is for %s students)", ErrGenderMismatch, candidate.Hostel.Name, candidate.Hostel.Gender.Display())
	}

	if room := candidate.PreferredRoom; room != nil {
		if room.Floor.HostelID != candidate.Hostel.ID {
			return ErrRoomNotInHostel
		}
		if room.Capacity != candidate.PreferredCapacity {
			return fmt.Errorf("%w (%d != %d)", ErrCapacityMismatch, room.Capacity, candidate.PreferredCapacity)
		}
		if room.IsFull() {
			return fmt.Errorf("%w (room %s)", ErrRoomFull, room.RoomNumber)
		}
	}

	if candidate.ActiveRequests > 0 {
		return ErrDuplicateActiveRequest
	}

	return nil
}
