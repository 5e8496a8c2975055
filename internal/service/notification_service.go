package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/hostel-allocation-api/internal/dto"
	"github.com/noah-isme/hostel-allocation-api/internal/models"
	"github.com/noah-isme/hostel-allocation-api/internal/observability"
	"github.com/noah-isme/hostel-allocation-api/internal/repository"
)

const notificationBufferSize = 16

var (
	// ErrNotificationNotFound indicates the notification does not exist in the student's inbox.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrEmptyNotification indicates the message had no text left after sanitization.
	ErrEmptyNotification = errors.New("notification message empty after sanitization")
	errMissingStudent    = errors.New("student id is required")
)

// NotificationService stores student inbox messages and fans them out to open
// SSE streams on every node.
type NotificationService interface {
	StudentNotifier
	List(ctx context.Context, studentID uint, limit, offset int) (dto.NotificationListResponse, error)
	MarkRead(ctx context.Context, id, studentID uint) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, studentID uint) (dto.MarkAllReadResponse, error)
	Subscribe(studentID uint) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

type notificationService struct {
	repo        repository.NotificationRepository
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	hub         *inboxHub
	nodeID      string
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

// inboxHub tracks the open SSE streams of students connected to this node.
type inboxHub struct {
	mu      sync.RWMutex
	streams map[uint]map[chan dto.NotificationResponse]struct{}
}

// NewNotificationService constructs a notification service.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":student_notifications"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".student_notifications"
	}

	return &notificationService{
		repo:        repo,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		validator:   validate,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/hostel-allocation-api/internal/service/notification"),
		sanitizer:   bluemonday.StrictPolicy(),
		hub: &inboxHub{
			streams: make(map[uint]map[chan dto.NotificationResponse]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

// Start consumes events published by other nodes. NATS takes precedence over
// Redis when both are configured so every event is delivered once.
func (s *notificationService) Start(ctx context.Context) {
	switch {
	case s.useNATS():
		go s.consumeNATS(ctx)
	case s.useRedis():
		go s.consumeRedis(ctx)
	}
}

func (s *notificationService) useNATS() bool {
	return s.nats != nil && s.natsSubject != ""
}

func (s *notificationService) useRedis() bool {
	return s.redis != nil && s.redisStream != ""
}

func (s *notificationService) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.NotificationResponse{}, err
	}

	cleanMessage := strings.TrimSpace(s.sanitizer.Sanitize(payload.Message))
	if cleanMessage == "" {
		return dto.NotificationResponse{}, ErrEmptyNotification
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.publish", trace.WithAttributes(
		attribute.Int64("notification.student_id", int64(payload.StudentID)),
		attribute.String("notification.type", payload.Type),
	))
	defer span.End()

	model := models.Notification{
		StudentID: payload.StudentID,
		RequestID: payload.RequestID,
		Type:      payload.Type,
		Message:   cleanMessage,
	}

	if err := s.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	response := dto.NewNotificationResponse(model)
	s.hub.deliver(response)
	if err := s.publish(spanCtx, response); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", response.StudentID).Msg("failed to fan out notification")
	}

	observability.NotificationsPublishedTotal().WithLabelValues(response.Type).Inc()

	return response, nil
}

func (s *notificationService) List(ctx context.Context, studentID uint, limit, offset int) (dto.NotificationListResponse, error) {
	if studentID == 0 {
		return dto.NotificationListResponse{}, errMissingStudent
	}

	notifications, err := s.repo.ListInbox(ctx, studentID, limit, offset)
	if err != nil {
		return dto.NotificationListResponse{}, err
	}

	unread, err := s.repo.CountUnread(ctx, studentID)
	if err != nil {
		return dto.NotificationListResponse{}, err
	}

	return dto.NotificationListResponse{
		Items:  dto.NewNotificationResponseSlice(notifications),
		Unread: unread,
	}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, studentID uint) (dto.NotificationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.Int64("notification.student_id", int64(studentID)),
		attribute.Int64("notification.id", int64(id)),
	))
	defer span.End()

	notification, err := s.repo.MarkRead(spanCtx, id, studentID)
	if err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, notFoundAs(err, ErrNotificationNotFound)
	}

	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, studentID uint) (dto.MarkAllReadResponse, error) {
	if studentID == 0 {
		return dto.MarkAllReadResponse{}, errMissingStudent
	}

	updated, err := s.repo.MarkAllRead(ctx, studentID)
	if err != nil {
		return dto.MarkAllReadResponse{}, err
	}
	return dto.MarkAllReadResponse{Updated: updated}, nil
}

// Subscribe opens a buffered stream for the student. Slow readers drop events
// rather than block publishers; the inbox remains the source of truth.
func (s *notificationService) Subscribe(studentID uint) (<-chan dto.NotificationResponse, func()) {
	channel := make(chan dto.NotificationResponse, notificationBufferSize)

	s.hub.attach(studentID, channel)
	observability.SSEClientsActive().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.hub.detach(studentID, channel)
			observability.SSEClientsActive().Dec()
		})
	}

	return channel, cleanup
}

func (s *notificationService) publish(ctx context.Context, notification dto.NotificationResponse) error {
	event := notificationEvent{
		Source:       s.nodeID,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	switch {
	case s.useNATS():
		return s.nats.Publish(s.natsSubject, payload)
	case s.useRedis():
		return s.redis.Publish(ctx, s.redisStream, payload).Err()
	default:
		return nil
	}
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

func (s *notificationService) handleEvent(payload []byte) {
	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	if event.Notification.StudentID == 0 {
		return
	}

	s.hub.deliver(event.Notification)
}

func (h *inboxHub) attach(studentID uint, ch chan dto.NotificationResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.streams[studentID]; !ok {
		h.streams[studentID] = make(map[chan dto.NotificationResponse]struct{})
	}
	h.streams[studentID][ch] = struct{}{}
}

func (h *inboxHub) detach(studentID uint, ch chan dto.NotificationResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()

	streams, ok := h.streams[studentID]
	if !ok {
		return
	}
	if _, open := streams[ch]; !open {
		return
	}
	delete(streams, ch)
	close(ch)
	if len(streams) == 0 {
		delete(h.streams, studentID)
	}
}

func (h *inboxHub) deliver(notification dto.NotificationResponse) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.streams[notification.StudentID] {
		select {
		case ch <- notification:
		default:
		}
	}
}
