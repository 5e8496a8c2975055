package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hostel-allocation-api/internal/dto"
	"github.com/noah-isme/hostel-allocation-api/internal/models"
	"github.com/noah-isme/hostel-allocation-api/internal/repository"
)

// HostelService serves read-only views of hostels, rooms and occupancy. Every
// figure is read from the room counters at call time.
type HostelService interface {
	ListHostels(ctx context.Context, gender models.Gender) ([]dto.HostelResponse, error)
	ListAvailableRooms(ctx context.Context, req dto.AvailableRoomsRequest) ([]dto.RoomResponse, error)
	OccupancySummary(ctx context.Context) (dto.OccupancySummaryResponse, error)
	// StudentGender resolves the gender used to scope a student's hostel views.
	StudentGender(ctx context.Context, studentID uint) (models.Gender, error)
}

type hostelService struct {
	repo      repository.HostelRepository
	students  repository.StudentRepository
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewHostelService constructs the hostel read service.
func NewHostelService(repo repository.HostelRepository, students repository.StudentRepository, validator *validator.Validate, logger zerolog.Logger) HostelService {
	return &hostelService{
		repo:      repo,
		students:  students,
		validator: validator,
		logger:    logger.With().Str("component", "hostel_service").Logger(),
		now:       time.Now,
	}
}

func (s *hostelService) ListHostels(ctx context.Context, gender models.Gender) ([]dto.HostelResponse, error) {
	hostels, err := s.repo.List(ctx, gender)
	if err != nil {
		return nil, err
	}

	summary, err := s.OccupancySummary(ctx)
	if err != nil {
		return nil, err
	}
	available := make(map[uint]int64, len(summary.Hostels))
	for _, row := range summary.Hostels {
		available[row.HostelID] = row.Available
	}

	responses := make([]dto.HostelResponse, 0, len(hostels))
	for _, hostel := range hostels {
		responses = append(responses, dto.NewHostelResponse(hostel, available[hostel.ID]))
	}
	return responses, nil
}

func (s *hostelService) ListAvailableRooms(ctx context.Context, req dto.AvailableRoomsRequest) ([]dto.RoomResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByID(ctx, req.HostelID); err != nil {
		return nil, notFoundAs(err, ErrHostelNotFound)
	}

	hostelID := req.HostelID
	rooms, err := s.repo.ListAvailableRooms(ctx, repository.RoomFilter{
		HostelID: &hostelID,
		Gender:   req.Gender,
		Capacity: req.Capacity,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewRoomResponseSlice(rooms), nil
}

func (s *hostelService) OccupancySummary(ctx context.Context) (dto.OccupancySummaryResponse, error) {
	totals, err := s.repo.OccupancyTotals(ctx)
	if err != nil {
		return dto.OccupancySummaryResponse{}, err
	}

	response := dto.OccupancySummaryResponse{
		Hostels:     make([]dto.HostelOccupancyResponse, 0, len(totals)),
		GeneratedAt: s.now().UTC(),
	}
	for _, row := range totals {
		response.Hostels = append(response.Hostels, dto.HostelOccupancyResponse{
			HostelID:       row.HostelID,
			Name:           row.HostelName,
			Gender:         string(row.Gender),
			TotalRooms:     row.TotalRooms,
			AvailableRooms: row.AvailableRooms,
			TotalCapacity:  row.TotalBeds,
			Occupied:       row.OccupiedBeds,
			Available:      row.TotalBeds - row.OccupiedBeds,
			PercentFull:    dto.PercentFull(row.OccupiedBeds, row.TotalBeds),
		})
		response.TotalCapacity += row.TotalBeds
		response.Occupied += row.OccupiedBeds
	}
	response.Available = response.TotalCapacity - response.Occupied
	response.PercentFull = dto.PercentFull(response.Occupied, response.TotalCapacity)

	s.logger.Debug().
		Int("hostels", len(response.Hostels)).
		Int64("occupied", response.Occupied).
		Int64("capacity", response.TotalCapacity).
		Msg("occupancy summary computed")
	return response, nil
}

func (s *hostelService) StudentGender(ctx context.Context, studentID uint) (models.Gender, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return "", notFoundAs(err, ErrStudentNotFound)
	}
	return student.Gender, nil
}
