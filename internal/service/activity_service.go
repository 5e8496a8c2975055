package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/hostel-allocation-api/internal/dto"
	"github.com/noah-isme/hostel-allocation-api/internal/models"
	"github.com/noah-isme/hostel-allocation-api/internal/repository"
)

var (
	// ErrUnknownActivity indicates an audit action outside the allocation vocabulary.
	ErrUnknownActivity = errors.New("unknown activity action")
	// ErrUnknownEntity indicates an audit entry for an entity type that is not tracked.
	ErrUnknownEntity = errors.New("unknown activity entity type")
)

// ActivityActor represents the authenticated user performing an action.
type ActivityActor struct {
	ID            uint
	Role          string
	CorrelationID string
}

// ActivityEntry captures the details required to persist an audit entry.
type ActivityEntry struct {
	ActorID       uint
	ActorRole     string
	Action        string
	EntityType    string
	EntityID      *uint
	CorrelationID string
	Metadata      map[string]interface{}
}

// ActivityRecorder defines behaviour for recording activity logs.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.AdminActivityResponse, error)
}

// ActivityService exposes methods to query and persist activity logs.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req dto.AdminActivityListRequest) (dto.AdminActivityListResponse, error)
	RequestHistory(ctx context.Context, requestID uint) (dto.RequestHistoryResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.AdminActivityResponse, error) {
	action := strings.ToLower(strings.TrimSpace(entry.Action))
	if !models.IsKnownActivity(action) {
		return dto.AdminActivityResponse{}, fmt.Errorf("%w: %q", ErrUnknownActivity, entry.Action)
	}
	entityType := strings.ToLower(strings.TrimSpace(entry.EntityType))
	if !models.IsKnownEntity(entityType) {
		return dto.AdminActivityResponse{}, fmt.Errorf("%w: %q", ErrUnknownEntity, entry.EntityType)
	}

	model := models.ActivityLog{
		ActorID:       entry.ActorID,
		ActorRole:     normalizeRole(entry.ActorRole),
		Action:        action,
		EntityType:    entityType,
		EntityID:      entry.EntityID,
		CorrelationID: strings.TrimSpace(entry.CorrelationID),
		Metadata:      sanitizeMetadata(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", model.Action).Msg("failed to persist activity log")
		return dto.AdminActivityResponse{}, err
	}

	s.logger.Debug().
		Str("action", model.Action).
		Str("entity_type", model.EntityType).
		Str("correlation_id", model.CorrelationID).
		Msg("activity recorded")

	return dto.NewAdminActivityResponse(model), nil
}

func (s *activityService) List(ctx context.Context, req dto.AdminActivityListRequest) (dto.AdminActivityListResponse, error) {
	filter := repository.ActivityLogFilter{
		Page:       req.Page,
		PageSize:   req.PageSize,
		Action:     strings.ToLower(strings.TrimSpace(req.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(req.EntityType)),
		Since:      req.Since,
	}
	if req.ActorID > 0 {
		filter.ActorID = &req.ActorID
	}
	if req.EntityID > 0 {
		filter.EntityID = &req.EntityID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AdminActivityListResponse{}, err
	}

	responses := make([]dto.AdminActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewAdminActivityResponse(entry))
	}

	return dto.AdminActivityListResponse{
		Items:      responses,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

// RequestHistory returns the decisions taken on one hostel request, oldest first.
func (s *activityService) RequestHistory(ctx context.Context, requestID uint) (dto.RequestHistoryResponse, error) {
	entries, _, err := s.repo.List(ctx, repository.ActivityLogFilter{
		EntityType:    models.EntityHostelRequest,
		EntityID:      &requestID,
		Chronological: true,
	})
	if err != nil {
		return dto.RequestHistoryResponse{}, err
	}

	events := make([]dto.AdminActivityResponse, 0, len(entries))
	for _, entry := range entries {
		events = append(events, dto.NewAdminActivityResponse(entry))
	}
	return dto.RequestHistoryResponse{RequestID: requestID, Events: events}, nil
}

// sanitizeMetadata masks values whose keys look like credentials.
func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "token") || strings.Contains(lower, "secret") || strings.Contains(lower, "password") {
			sanitized[key] = "[redacted]"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return "system"
	}
	return r
}
