package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/hostel-allocation-api/internal/dto"
	"github.com/noah-isme/hostel-allocation-api/internal/repository"
)

// StudentDashboardService assembles the student's request and allocation state.
type StudentDashboardService interface {
	GetDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error)
}

type studentDashboardService struct {
	students      repository.StudentRepository
	requests      repository.RequestRepository
	allocations   repository.AllocationRepository
	notifications repository.NotificationRepository
	logger        zerolog.Logger
}

// NewStudentDashboardService constructs the dashboard service. notifications is optional.
func NewStudentDashboardService(
	students repository.StudentRepository,
	requests repository.RequestRepository,
	allocations repository.AllocationRepository,
	notifications repository.NotificationRepository,
	logger zerolog.Logger,
) StudentDashboardService {
	return &studentDashboardService{
		students:      students,
		requests:      requests,
		allocations:   allocations,
		notifications: notifications,
		logger:        logger.With().Str("component", "student_dashboard_service").Logger(),
	}
}

func (s *studentDashboardService) GetDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, notFoundAs(err, ErrStudentNotFound)
	}

	response := dto.StudentDashboardResponse{Student: dto.NewStudentResponse(student)}

	request, err := s.requests.LatestForStudent(ctx, studentID)
	switch {
	case err == nil:
		current := dto.NewHostelRequestResponse(request)
		response.CurrentRequest = &current
	case !repository.IsNotFound(err):
		return dto.StudentDashboardResponse{}, err
	}

	allocation, err := s.allocations.GetByStudent(ctx, studentID)
	switch {
	case err == nil:
		allocation.Student = student
		current := dto.NewAllocationResponse(allocation)
		response.Allocation = &current
	case !repository.IsNotFound(err):
		return dto.StudentDashboardResponse{}, err
	}

	if s.notifications != nil {
		unread, err := s.notifications.CountUnread(ctx, studentID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to count unread notifications")
		} else {
			response.UnreadNotifications = unread
		}
	}

	return response, nil
}
