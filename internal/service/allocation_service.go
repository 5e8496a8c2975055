package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/hostel-allocation-api/internal/dto"
	"github.com/noah-isme/hostel-allocation-api/internal/models"
	"github.com/noah-isme/hostel-allocation-api/internal/observability"
	"github.com/noah-isme/hostel-allocation-api/internal/repository"
)

var (
	// ErrStudentNotFound indicates the student record does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrHostelNotFound indicates the hostel does not exist.
	ErrHostelNotFound = errors.New("hostel not found")
	// ErrRoomNotFound indicates the room does not exist.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRequestNotFound indicates the hostel request does not exist.
	ErrRequestNotFound = errors.New("hostel request not found")
	// ErrRequestClosed indicates a rejected request, which can no longer be approved.
	ErrRequestClosed = errors.New("hostel request has been rejected")
	// ErrNoRoomAvailable indicates the hostel has no free bed for the request.
	ErrNoRoomAvailable = errors.New("no available room in hostel")
)

// ApproveOptions tunes a single approval.
type ApproveOptions struct {
	// Reallocate moves an already allocated student to another room of the hostel.
	Reallocate bool
}

// StudentNotifier delivers inbox messages to students.
type StudentNotifier interface {
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
}

// AllocationService runs the request lifecycle and keeps room occupancy consistent.
type AllocationService interface {
	// Submit stores a PENDING request for the acting student.
	Submit(ctx context.Context, actor ActivityActor, payload dto.HostelRequestCreateRequest) (dto.HostelRequestResponse, error)
	Approve(ctx context.Context, requestID uint, opts ApproveOptions, actor ActivityActor) (dto.DecisionResponse, error)
	Reject(ctx context.Context, requestID uint, actor ActivityActor) (dto.DecisionResponse, error)
	BatchApprove(ctx context.Context, payload dto.BatchDecisionRequest, actor ActivityActor) (dto.BatchDecisionResponse, error)
	BatchReject(ctx context.Context, payload dto.BatchDecisionRequest, actor ActivityActor) (dto.BatchDecisionResponse, error)
	ReconcileOccupancy(ctx context.Context, actor ActivityActor) (dto.ReconcileResponse, error)
}

type allocationService struct {
	repo      repository.AllocationRepository
	requests  repository.RequestRepository
	validator *validator.Validate
	activity  ActivityRecorder
	notifier  StudentNotifier
	sanitizer *bluemonday.Policy
	tracer    trace.Tracer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAllocationService constructs the allocation engine. activity and notifier
// are optional.
func NewAllocationService(
	repo repository.AllocationRepository,
	requests repository.RequestRepository,
	validator *validator.Validate,
	activity ActivityRecorder,
	notifier StudentNotifier,
	logger zerolog.Logger,
) AllocationService {
	return &allocationService{
		repo:      repo,
		requests:  requests,
		validator: validator,
		activity:  activity,
		notifier:  notifier,
		sanitizer: bluemonday.StrictPolicy(),
		tracer:    otel.Tracer("github.com/noah-isme/hostel-allocation-api/internal/service/allocation"),
		logger:    logger.With().Str("component", "allocation_service").Logger(),
		now:       time.Now,
	}
}

type approvalResult struct {
	request        models.HostelRequest
	outcome        string
	roomID         uint
	previousRoomID uint
	roomLabel      string
}

func (s *allocationService) Submit(ctx context.Context, actor ActivityActor, payload dto.HostelRequestCreateRequest) (dto.HostelRequestResponse, error) {
	ctx, span := s.tracer.Start(ctx, "allocation.submit", trace.WithAttributes(
		attribute.Int64("allocation.student_id", int64(actor.ID)),
		attribute.Int64("allocation.hostel_id", int64(payload.HostelID)),
		attribute.Int("allocation.preferred_capacity", payload.PreferredCapacity),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.HostelRequestResponse{}, err
	}

	note := strings.TrimSpace(s.sanitizer.Sanitize(payload.Note))

	var request models.HostelRequest
	started := time.Now()
	err := s.repo.WithinTx(ctx, func(tx repository.AllocationTx) error {
		student, err := tx.LockStudent(actor.ID)
		if err != nil {
			return notFoundAs(err, ErrStudentNotFound)
		}

		hostel, err := tx.GetHostel(payload.HostelID)
		if err != nil {
			return notFoundAs(err, ErrHostelNotFound)
		}

		candidate := RequestCandidate{
			Student:           student,
			Hostel:            hostel,
			PreferredCapacity: payload.PreferredCapacity,
		}
		if payload.PreferredRoomID != nil {
			room, err := tx.GetRoom(*payload.PreferredRoomID)
			if err != nil {
				return notFoundAs(err, ErrRoomNotFound)
			}
			candidate.PreferredRoom = &room
		}

		active, err := tx.CountActiveRequests(student.ID)
		if err != nil {
			return err
		}
		candidate.ActiveRequests = active

		if err := ValidateHostelRequest(candidate); err != nil {
			return err
		}

		request = models.HostelRequest{
			StudentID:         student.ID,
			HostelID:          hostel.ID,
			PreferredCapacity: payload.PreferredCapacity,
			PreferredRoomID:   payload.PreferredRoomID,
			Status:            models.RequestStatusPending,
			Note:              note,
		}
		return tx.CreateRequest(&request)
	})
	observability.AllocationDuration().WithLabelValues("submit").Observe(time.Since(started).Seconds())
	if err != nil {
		outcome := outcomeForError(err)
		observability.AllocationOutcomes().WithLabelValues("submit", outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return dto.HostelRequestResponse{}, err
	}

	observability.AllocationOutcomes().WithLabelValues("submit", "submitted").Inc()
	span.SetAttributes(attribute.Int64("allocation.request_id", int64(request.ID)))

	s.record(ctx, actor, models.ActivityRequestSubmitted, models.EntityHostelRequest, request.ID, map[string]interface{}{
		"hostel_id":          request.HostelID,
		"preferred_capacity": request.PreferredCapacity,
	})

	return dto.NewHostelRequestResponse(s.reload(ctx, request)), nil
}

func (s *allocationService) Approve(ctx context.Context, requestID uint, opts ApproveOptions, actor ActivityActor) (dto.DecisionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "allocation.approve", trace.WithAttributes(
		attribute.Int64("allocation.request_id", int64(requestID)),
		attribute.Int64("allocation.actor_id", int64(actor.ID)),
		attribute.Bool("allocation.reallocate", opts.Reallocate),
	))
	defer span.End()

	var result approvalResult
	started := time.Now()
	err := s.repo.WithinTx(ctx, func(tx repository.AllocationTx) error {
		var err error
		result, err = s.approveInTx(tx, requestID, opts, actor)
		return err
	})
	observability.AllocationDuration().WithLabelValues("approve").Observe(time.Since(started).Seconds())
	if err != nil {
		outcome := outcomeForError(err)
		observability.AllocationOutcomes().WithLabelValues("approve", outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		if errors.Is(err, models.ErrOccupancyInvariant) {
			s.logger.Error().Err(err).Uint("request_id", requestID).Msg("approval aborted by occupancy invariant")
		}
		return dto.DecisionResponse{}, err
	}

	observability.AllocationOutcomes().WithLabelValues("approve", result.outcome).Inc()
	span.SetAttributes(
		attribute.String("allocation.outcome", result.outcome),
		attribute.Int64("allocation.room_id", int64(result.roomID)),
	)

	if result.outcome != dto.OutcomeUnchanged {
		s.afterApproval(ctx, result, actor)
	}

	return s.decision(ctx, result.request, result.outcome, true), nil
}

func (s *allocationService) approveInTx(tx repository.AllocationTx, requestID uint, opts ApproveOptions, actor ActivityActor) (approvalResult, error) {
	request, err := tx.LockRequest(requestID)
	if err != nil {
		return approvalResult{}, notFoundAs(err, ErrRequestNotFound)
	}
	if request.Status == models.RequestStatusRejected {
		return approvalResult{}, ErrRequestClosed
	}

	student, err := tx.LockStudent(request.StudentID)
	if err != nil {
		return approvalResult{}, notFoundAs(err, ErrStudentNotFound)
	}
	hostel, err := tx.GetHostel(request.HostelID)
	if err != nil {
		return approvalResult{}, notFoundAs(err, ErrHostelNotFound)
	}
	if hostel.Gender != student.Gender {
		return approvalResult{}, ErrGenderMismatch
	}

	result := approvalResult{request: request}

	allocation, err := tx.GetAllocation(student.ID)
	hasAllocation := err == nil
	if err != nil && !repository.IsNotFound(err) {
		return approvalResult{}, err
	}

	if hasAllocation {
		current, err := tx.GetRoom(allocation.RoomID)
		if err != nil {
			return approvalResult{}, err
		}
		result.previousRoomID = current.ID

		if request.Status == models.RequestStatusApproved && current.HostelID() == request.HostelID && !opts.Reallocate {
			result.outcome = dto.OutcomeUnchanged
			result.roomID = current.ID
			result.roomLabel = current.Label()
			return result, nil
		}
	}

	room, err := tx.FindOpenRoom(request.HostelID, request.PreferredCapacity, result.previousRoomID)
	if repository.IsNotFound(err) {
		room, err = tx.FindOpenRoom(request.HostelID, 0, result.previousRoomID)
	}
	if err != nil {
		return approvalResult{}, notFoundAs(err, ErrNoRoomAvailable)
	}

	if err := tx.IncrementOccupancy(room.ID); err != nil {
		return approvalResult{}, err
	}

	now := s.now().UTC()
	if hasAllocation {
		if err := tx.DecrementOccupancy(allocation.RoomID); err != nil {
			return approvalResult{}, err
		}
		allocation.AllocatedAt = now
		if err := tx.MoveAllocation(&allocation, room.ID); err != nil {
			return approvalResult{}, err
		}
		result.outcome = dto.OutcomeMoved
	} else {
		allocation = models.Allocation{
			StudentID:   student.ID,
			RoomID:      room.ID,
			AllocatedAt: now,
		}
		if err := tx.CreateAllocation(&allocation); err != nil {
			return approvalResult{}, err
		}
		result.outcome = dto.OutcomeApproved
	}

	updated, err := tx.GetRoom(room.ID)
	if err != nil {
		return approvalResult{}, err
	}
	if err := updated.CheckInvariant(); err != nil {
		return approvalResult{}, err
	}

	reviewer := actor.ID
	request.Status = models.RequestStatusApproved
	request.ReviewedBy = &reviewer
	request.ReviewedAt = &now
	if err := tx.UpdateRequestStatus(&request); err != nil {
		return approvalResult{}, err
	}

	result.request = request
	result.roomID = updated.ID
	result.roomLabel = updated.Label()
	return result, nil
}

func (s *allocationService) afterApproval(ctx context.Context, result approvalResult, actor ActivityActor) {
	request := result.request

	s.record(ctx, actor, models.ActivityRequestApproved, models.EntityHostelRequest, request.ID, map[string]interface{}{
		"student_id": request.StudentID,
		"hostel_id":  request.HostelID,
		"room_id":    result.roomID,
		"outcome":    result.outcome,
	})

	notificationType := models.NotificationRequestApproved
	message := fmt.Sprintf("Your hostel request has been approved. You have been allocated %s.", result.roomLabel)
	if result.outcome == dto.OutcomeMoved {
		s.record(ctx, actor, models.ActivityAllocationMoved, models.EntityAllocation, request.StudentID, map[string]interface{}{
			"from_room_id": result.previousRoomID,
			"to_room_id":   result.roomID,
		})
		notificationType = models.NotificationRoomChanged
		message = fmt.Sprintf("Your room allocation has changed. You are now in %s.", result.roomLabel)
	}

	s.notify(ctx, request, notificationType, message)
}

func (s *allocationService) Reject(ctx context.Context, requestID uint, actor ActivityActor) (dto.DecisionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "allocation.reject", trace.WithAttributes(
		attribute.Int64("allocation.request_id", int64(requestID)),
		attribute.Int64("allocation.actor_id", int64(actor.ID)),
	))
	defer span.End()

	var (
		request models.HostelRequest
		outcome string
	)
	err := s.repo.WithinTx(ctx, func(tx repository.AllocationTx) error {
		var err error
		request, err = tx.LockRequest(requestID)
		if err != nil {
			return notFoundAs(err, ErrRequestNotFound)
		}
		if request.Status != models.RequestStatusPending {
			outcome = dto.OutcomeUnchanged
			return nil
		}

		now := s.now().UTC()
		reviewer := actor.ID
		request.Status = models.RequestStatusRejected
		request.ReviewedBy = &reviewer
		request.ReviewedAt = &now
		outcome = dto.OutcomeRejected
		return tx.UpdateRequestStatus(&request)
	})
	if err != nil {
		failure := outcomeForError(err)
		observability.AllocationOutcomes().WithLabelValues("reject", failure).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, failure)
		return dto.DecisionResponse{}, err
	}

	observability.AllocationOutcomes().WithLabelValues("reject", outcome).Inc()
	span.SetAttributes(attribute.String("allocation.outcome", outcome))

	response := s.decision(ctx, request, outcome, false)
	if outcome == dto.OutcomeRejected {
		s.record(ctx, actor, models.ActivityRequestRejected, models.EntityHostelRequest, request.ID, map[string]interface{}{
			"student_id": request.StudentID,
			"hostel_id":  request.HostelID,
		})
		hostelName := response.Request.HostelName
		if hostelName == "" {
			hostelName = "the requested hostel"
		}
		s.notify(ctx, request, models.NotificationRequestRejected,
			fmt.Sprintf("Your hostel request for %s has been rejected.", hostelName))
	}

	return response, nil
}

func (s *allocationService) BatchApprove(ctx context.Context, payload dto.BatchDecisionRequest, actor ActivityActor) (dto.BatchDecisionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BatchDecisionResponse{}, err
	}

	return s.batch(payload.RequestIDs, func(id uint) (string, error) {
		response, err := s.Approve(ctx, id, ApproveOptions{}, actor)
		return response.Outcome, err
	}), nil
}

func (s *allocationService) BatchReject(ctx context.Context, payload dto.BatchDecisionRequest, actor ActivityActor) (dto.BatchDecisionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BatchDecisionResponse{}, err
	}

	return s.batch(payload.RequestIDs, func(id uint) (string, error) {
		response, err := s.Reject(ctx, id, actor)
		return response.Outcome, err
	}), nil
}

// batch decides each request on its own so one failure never blocks the rest.
func (s *allocationService) batch(ids []uint, decide func(id uint) (string, error)) dto.BatchDecisionResponse {
	response := dto.BatchDecisionResponse{
		Results: make([]dto.BatchItemResult, 0, len(ids)),
		Counts:  map[string]int{},
	}

	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		outcome, err := decide(id)
		item := dto.BatchItemResult{RequestID: id, Outcome: outcome}
		if err != nil {
			item.Outcome = outcomeForError(err)
			item.Error = err.Error()
			if item.Outcome == dto.OutcomeFailed {
				s.logger.Error().Err(err).Uint("request_id", id).Msg("batch decision failed")
			}
		}

		response.Results = append(response.Results, item)
		response.Counts[item.Outcome]++
	}

	return response
}

func (s *allocationService) ReconcileOccupancy(ctx context.Context, actor ActivityActor) (dto.ReconcileResponse, error) {
	ctx, span := s.tracer.Start(ctx, "allocation.reconcile", trace.WithAttributes(
		attribute.Int64("allocation.actor_id", int64(actor.ID)),
	))
	defer span.End()

	drifts, err := s.repo.FindOccupancyDrift(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "drift_scan_failed")
		return dto.ReconcileResponse{}, err
	}

	response := dto.ReconcileResponse{
		Repaired: []dto.OccupancyRepair{},
		Breaches: []dto.OccupancyRepair{},
	}
	for _, drift := range drifts {
		item := dto.OccupancyRepair{
			RoomID:    drift.RoomID,
			Capacity:  drift.Capacity,
			Recorded:  drift.Recorded,
			Allocated: drift.Allocated,
		}

		if drift.Allocated > drift.Capacity {
			s.logger.Error().
				Uint("room_id", drift.RoomID).
				Int("capacity", drift.Capacity).
				Int("allocated", drift.Allocated).
				Msg("room holds more allocations than beds")
			response.Breaches = append(response.Breaches, item)
			continue
		}

		if err := s.repo.SyncOccupancy(ctx, drift.RoomID); err != nil {
			if errors.Is(err, models.ErrOccupancyInvariant) {
				s.logger.Error().Err(err).Uint("room_id", drift.RoomID).Msg("room overflowed during reconciliation")
				response.Breaches = append(response.Breaches, item)
				continue
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "sync_failed")
			return dto.ReconcileResponse{}, err
		}

		observability.OccupancyRepairs().Inc()
		s.logger.Warn().
			Uint("room_id", drift.RoomID).
			Int("recorded", drift.Recorded).
			Int("allocated", drift.Allocated).
			Msg("room occupancy repaired")
		response.Repaired = append(response.Repaired, item)
	}

	span.SetAttributes(
		attribute.Int("allocation.repaired", len(response.Repaired)),
		attribute.Int("allocation.breaches", len(response.Breaches)),
	)

	if len(response.Repaired) > 0 || len(response.Breaches) > 0 {
		s.record(ctx, actor, models.ActivityOccupancyReconciled, models.EntityRoom, 0, map[string]interface{}{
			"repaired": len(response.Repaired),
			"breaches": len(response.Breaches),
		})
	}

	return response, nil
}

func (s *allocationService) decision(ctx context.Context, request models.HostelRequest, outcome string, withAllocation bool) dto.DecisionResponse {
	response := dto.DecisionResponse{
		Outcome: outcome,
		Request: dto.NewHostelRequestResponse(s.reload(ctx, request)),
	}

	if withAllocation {
		allocation, err := s.repo.GetByStudent(ctx, request.StudentID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("student_id", request.StudentID).Msg("failed to load allocation for response")
			return response
		}
		item := dto.NewAllocationResponse(allocation)
		response.Allocation = &item
	}

	return response
}

// reload fetches the request with its associations, falling back to the given copy.
func (s *allocationService) reload(ctx context.Context, request models.HostelRequest) models.HostelRequest {
	if s.requests == nil {
		return request
	}
	loaded, err := s.requests.GetByID(ctx, request.ID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("request_id", request.ID).Msg("failed to reload request")
		return request
	}
	return loaded
}

func (s *allocationService) record(ctx context.Context, actor ActivityActor, action, entityType string, entityID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}

	entry := ActivityEntry{
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		CorrelationID: actor.CorrelationID,
		Metadata:      metadata,
	}
	if entityID > 0 {
		id := entityID
		entry.EntityID = &id
	}

	if _, err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}

func (s *allocationService) notify(ctx context.Context, request models.HostelRequest, notificationType, message string) {
	if s.notifier == nil {
		return
	}

	requestID := request.ID
	_, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
		StudentID: request.StudentID,
		RequestID: &requestID,
		Type:      notificationType,
		Message:   message,
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("student_id", request.StudentID).Uint("request_id", request.ID).Msg("failed to notify student")
	}
}

func notFoundAs(err error, target error) error {
	if repository.IsNotFound(err) {
		return target
	}
	return err
}

func outcomeForError(err error) string {
	switch {
	case errors.Is(err, ErrRequestNotFound),
		errors.Is(err, ErrStudentNotFound),
		errors.Is(err, ErrHostelNotFound),
		errors.Is(err, ErrRoomNotFound):
		return dto.OutcomeNotFound
	case errors.Is(err, ErrNoRoomAvailable):
		return dto.OutcomeNoRoom
	case errors.Is(err, ErrRequestClosed):
		return dto.OutcomeClosed
	case errors.Is(err, ErrRequestRejected):
		return dto.OutcomeIneligible
	default:
		return dto.OutcomeFailed
	}
}
