package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hostel-allocation-api/internal/dto"
	"github.com/noah-isme/hostel-allocation-api/internal/service"
	"github.com/noah-isme/hostel-allocation-api/internal/utils"
)

// AdminActivityHandler exposes the allocation audit log.
type AdminActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewAdminActivityHandler constructs the handler.
func NewAdminActivityHandler(service service.ActivityService, logger zerolog.Logger) *AdminActivityHandler {
	return &AdminActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_activity_handler").Logger(),
	}
}

// Register attaches activity log routes to the router group.
func (h *AdminActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/requests/:id", h.requestHistory)
}

func (h *AdminActivityHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	if page <= 0 {
		page = 1
	}

	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	if pageSize <= 0 {
		pageSize = 25
	} else if pageSize > 200 {
		pageSize = 200
	}

	actorID, err := parseQueryUint(c, "actor_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid actor id")
	}
	entityID, err := parseQueryUint(c, "entity_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid entity id")
	}

	req := dto.AdminActivityListRequest{
		Page:       page,
		PageSize:   pageSize,
		ActorID:    actorID,
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		EntityID:   entityID,
	}
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "since must be an RFC3339 timestamp")
		}
		req.Since = &since
	}

	response, err := h.service.List(requestContext(c), req)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list activity logs")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list activity logs")
	}

	return utils.OK(c, response.Items, "activity logs", response.Pagination)
}

func (h *AdminActivityHandler) requestHistory(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request id")
	}

	history, err := h.service.RequestHistory(requestContext(c), id)
	if err != nil {
		h.logger.Error().Err(err).Uint("request_id", id).Msg("failed to load request history")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load request history")
	}
	return utils.SendSuccess(c, "request history", history)
}
