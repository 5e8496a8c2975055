package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hostel-allocation-api/internal/dto"
	"github.com/noah-isme/hostel-allocation-api/internal/service"
	"github.com/noah-isme/hostel-allocation-api/internal/utils"
)

// StudentRequestHandler accepts hostel requests from students.
type StudentRequestHandler struct {
	service service.AllocationService
	logger  zerolog.Logger
}

// NewStudentRequestHandler constructs the handler.
func NewStudentRequestHandler(service service.AllocationService, logger zerolog.Logger) *StudentRequestHandler {
	return &StudentRequestHandler{
		service: service,
		logger:  logger.With().Str("component", "student_request_handler").Logger(),
	}
}

// Register wires the student request routes.
func (h *StudentRequestHandler) Register(router fiber.Router) {
	router.Post("/requests", h.submit)
}

func (h *StudentRequestHandler) submit(c *fiber.Ctx) error {
	actor := activityActorFromContext(c)
	if actor.ID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.HostelRequestCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	request, err := h.service.Submit(requestContext(c), actor, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to submit hostel request")
	}

	return utils.Created(c, "hostel request submitted", request)
}
