package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hostel-allocation-api/internal/dto"
	"github.com/noah-isme/hostel-allocation-api/internal/models"
	"github.com/noah-isme/hostel-allocation-api/internal/repository"
)

// AdminRequestService powers the staff request queue and allocation overview.
type AdminRequestService interface {
	ListRequests(ctx context.Context, req dto.RequestListRequest) (dto.RequestListResponse, error)
	ListAllocations(ctx context.Context, req dto.AllocationListRequest) (dto.AllocationListResponse, error)
}

type adminRequestService struct {
	requests    repository.RequestRepository
	allocations repository.AllocationRepository
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewAdminRequestService constructs the staff listing service.
func NewAdminRequestService(requests repository.RequestRepository, allocations repository.AllocationRepository, validator *validator.Validate, logger zerolog.Logger) AdminRequestService {
	return &adminRequestService{
		requests:    requests,
		allocations: allocations,
		validator:   validator,
		logger:      logger.With().Str("component", "admin_request_service").Logger(),
	}
}

func (s *adminRequestService) ListRequests(ctx context.Context, req dto.RequestListRequest) (dto.RequestListResponse, error) {
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if err := s.validator.Struct(req); err != nil {
		return dto.RequestListResponse{}, err
	}

	page := maxInt(req.Page, 1)
	pageSize := clampPageSize(req.PageSize)

	filter := repository.RequestFilter{
		Status:   models.RequestStatus(req.Status),
		Page:     page,
		PageSize: pageSize,
	}
	var hostelID *uint
	if req.HostelID > 0 {
		id := req.HostelID
		hostelID = &id
		filter.HostelID = hostelID
	}

	items, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return dto.RequestListResponse{}, err
	}

	counts, err := s.requests.CountByStatus(ctx, hostelID)
	if err != nil {
		return dto.RequestListResponse{}, err
	}

	responses := make([]dto.HostelRequestResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, dto.NewHostelRequestResponse(item))
	}

	return dto.RequestListResponse{
		Items: responses,
		Counts: dto.RequestCountsResponse{
			Total:    counts.Total,
			Pending:  counts.Pending,
			Approved: counts.Approved,
			Rejected: counts.Rejected,
		},
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *adminRequestService) ListAllocations(ctx context.Context, req dto.AllocationListRequest) (dto.AllocationListResponse, error) {
	page := maxInt(req.Page, 1)
	pageSize := clampPageSize(req.PageSize)

	filter := repository.AllocationFilter{Page: page, PageSize: pageSize}
	if req.HostelID > 0 {
		id := req.HostelID
		filter.HostelID = &id
	}

	items, total, err := s.allocations.List(ctx, filter)
	if err != nil {
		return dto.AllocationListResponse{}, err
	}

	responses := make([]dto.AllocationResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, dto.NewAllocationResponse(item))
	}

	return dto.AllocationListResponse{
		Items:      responses,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func clampPageSize(size int) int {
	if size <= 0 {
		return 20
	}
	if size > 100 {
		return 100
	}
	return size
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
