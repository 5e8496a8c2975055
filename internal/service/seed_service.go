package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hostel-allocation-api/internal/dto"
	"github.com/noah-isme/hostel-allocation-api/internal/models"
	"github.com/noah-isme/hostel-allocation-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService loads hostel layouts and student records.
type SeedService interface {
	SeedHostels(ctx context.Context, token string, payload dto.SeedHostelsRequest) (int64, error)
	SeedStudents(ctx context.Context, token string, payload dto.SeedStudentsRequest) (int64, error)
}

type seedService struct {
	hostels   repository.HostelRepository
	students  repository.StudentRepository
	validator *validator.Validate
	enabled   bool
	token     string
	logger    zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(hostels repository.HostelRepository, students repository.StudentRepository, validator *validator.Validate, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		hostels:   hostels,
		students:  students,
		validator: validator,
		enabled:   enabled,
		token:     token,
		logger:    logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedHostels(ctx context.Context, token string, payload dto.SeedHostelsRequest) (int64, error) {
	if err := s.authorize(token); err != nil {
		return 0, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return 0, err
	}

	var affected int64
	for _, item := range payload.Hostels {
		hostel := hostelFromSeed(item)
		if err := s.hostels.UpsertLayout(ctx, &hostel); err != nil {
			return affected, err
		}
		affected++
	}

	s.logger.Info().Int64("affected", affected).Msg("hostels seeded")
	return affected, nil
}

func (s *seedService) SeedStudents(ctx context.Context, token string, payload dto.SeedStudentsRequest) (int64, error) {
	if err := s.authorize(token); err != nil {
		return 0, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return 0, err
	}

	students := make([]models.Student, 0, len(payload.Students))
	for _, item := range payload.Students {
		students = append(students, models.Student{
			MatricNo: strings.ToUpper(strings.TrimSpace(item.MatricNo)),
			FullName: strings.TrimSpace(item.FullName),
			Gender:   models.Gender(item.Gender),
			Level:    item.Level,
		})
	}

	if err := s.students.Upsert(ctx, students); err != nil {
		return 0, err
	}

	affected := int64(len(students))
	s.logger.Info().Int64("affected", affected).Msg("students seeded")
	return affected, nil
}

func (s *seedService) authorize(token string) error {
	if !s.enabled {
		return ErrSeedDisabled
	}
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return ErrSeedUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) != 1 {
		return ErrSeedUnauthorized
	}
	return nil
}

func hostelFromSeed(item dto.SeedHostel) models.Hostel {
	hostel := models.Hostel{
		Name:        strings.TrimSpace(item.Name),
		Gender:      models.Gender(item.Gender),
		Description: strings.TrimSpace(item.Description),
		Floors:      make([]models.Floor, 0, len(item.Floors)),
	}
	for _, floor := range item.Floors {
		rooms := make([]models.Room, 0, len(floor.Rooms))
		for _, room := range floor.Rooms {
			rooms = append(rooms, models.Room{
				RoomNumber: strings.TrimSpace(room.RoomNumber),
				Capacity:   room.Capacity,
			})
		}
		hostel.Floors = append(hostel.Floors, models.Floor{
			FloorType: floor.FloorType,
			Rooms:     rooms,
		})
	}
	return hostel
}
