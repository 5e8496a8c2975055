package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hostel-allocation-api/internal/dto"
	"github.com/noah-isme/hostel-allocation-api/internal/service"
	"github.com/noah-isme/hostel-allocation-api/internal/utils"
)

// SeedHandler exposes tooling endpoints for loading hostel layouts and students.
type SeedHandler struct {
	service service.SeedService
	logger  zerolog.Logger
}

// NewSeedHandler constructs a seed handler.
func NewSeedHandler(service service.SeedService, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{
		service: service,
		logger:  logger.With().Str("component", "seed_handler").Logger(),
	}
}

// Register wires seed routes.
func (h *SeedHandler) Register(router fiber.Router) {
	router.Post("/hostels", h.hostels)
	router.Post("/students", h.students)
}

func (h *SeedHandler) hostels(c *fiber.Ctx) error {
	token := c.Get("X-Seed-Token")
	var payload dto.SeedHostelsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	affected, err := h.service.SeedHostels(requestContext(c), token, payload)
	if err != nil {
		return h.seedError(c, err)
	}

	return utils.SendSuccess(c, "hostels seeded", dto.SeedResponse{Affected: affected})
}

func (h *SeedHandler) students(c *fiber.Ctx) error {
	token := c.Get("X-Seed-Token")
	var payload dto.SeedStudentsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	affected, err := h.service.SeedStudents(requestContext(c), token, payload)
	if err != nil {
		return h.seedError(c, err)
	}

	return utils.SendSuccess(c, "students seeded", dto.SeedResponse{Affected: affected})
}

func (h *SeedHandler) seedError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSeedDisabled):
		return utils.SendError(c, fiber.StatusForbidden, "seeding disabled")
	case errors.Is(err, service.ErrSeedUnauthorized):
		return utils.SendError(c, fiber.StatusForbidden, "invalid token")
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	default:
		h.logger.Error().Err(err).Msg("seed operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "seed operation failed")
	}
}
