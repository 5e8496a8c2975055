package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hostel-allocation-api/internal/dto"
	"github.com/noah-isme/hostel-allocation-api/internal/service"
	"github.com/noah-isme/hostel-allocation-api/internal/utils"
)

const (
	sseRetry    = 5 * time.Second
	replayLimit = 50
)

// NotificationHandler serves the student inbox and its SSE stream.
type NotificationHandler struct {
	service service.NotificationService
	logger  zerolog.Logger
	timeout time.Duration
}

// NewNotificationHandler constructs a handler instance.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger, timeout time.Duration) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("component", "notification_handler").Logger(),
		timeout: timeout,
	}
}

// Register binds the notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/stream", h.stream)
	router.Patch("/read", h.markAllRead)
	router.Patch("/:id/read", h.markRead)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	notifications, err := h.service.List(requestContext(c), studentID, limit, offset)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list notifications")
	}

	return utils.SendSuccess(c, "notifications", notifications)
}

func (h *NotificationHandler) stream(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithCancel(requestContext(c))

	// Subscribe before reading the backlog so nothing published in between is lost.
	stream, cleanup := h.service.Subscribe(studentID)
	backlog := h.missedNotifications(ctx, studentID, parseLastEventID(c.Get("Last-Event-ID")))

	keepAliveInterval := h.timeout
	if keepAliveInterval <= 0 {
		keepAliveInterval = 30 * time.Second
	}

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cleanup()
			cancel()
		}()

		if _, err := fmt.Fprintf(w, "retry: %d\n\n", sseRetry.Milliseconds()); err != nil {
			return
		}

		var lastSent uint
		for _, notification := range backlog {
			if err := writeNotificationEvent(w, notification); err != nil {
				h.logger.Debug().Err(err).Msg("failed to replay notification")
				return
			}
			lastSent = notification.ID
		}
		if err := w.Flush(); err != nil {
			return
		}

		ticker := time.NewTicker(keepAliveInterval / 2)
		defer ticker.Stop()

		for {
			select {
			case notification, ok := <-stream:
				if !ok {
					return
				}
				if notification.ID != 0 && notification.ID <= lastSent {
					continue
				}
				if err := writeNotificationEvent(w, notification); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write notification event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write notification keepalive")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

// missedNotifications returns inbox entries newer than lastEventID, oldest first.
func (h *NotificationHandler) missedNotifications(ctx context.Context, studentID, lastEventID uint) []dto.NotificationResponse {
	if lastEventID == 0 {
		return nil
	}

	inbox, err := h.service.List(ctx, studentID, replayLimit, 0)
	if err != nil {
		h.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to load notification backlog")
		return nil
	}

	missed := make([]dto.NotificationResponse, 0, len(inbox.Items))
	for i := len(inbox.Items) - 1; i >= 0; i-- {
		if inbox.Items[i].ID > lastEventID {
			missed = append(missed, inbox.Items[i])
		}
	}
	return missed
}

func parseLastEventID(raw string) uint {
	parsed, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return uint(parsed)
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	notificationID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid notification id")
	}

	notification, err := h.service.MarkRead(requestContext(c), notificationID, studentID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update notification")
	}

	return utils.SendSuccess(c, "notification updated", notification)
}

func (h *NotificationHandler) markAllRead(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	result, err := h.service.MarkAllRead(requestContext(c), studentID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update notifications")
	}
	return utils.SendSuccess(c, "notifications marked as read", result)
}

func writeNotificationEvent(w *bufio.Writer, notification dto.NotificationResponse) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	if notification.ID != 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", notification.ID); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "event: notification\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
