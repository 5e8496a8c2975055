package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hostel-allocation-api/internal/dto"
	"github.com/noah-isme/hostel-allocation-api/internal/service"
	"github.com/noah-isme/hostel-allocation-api/internal/utils"
)

// HostelHandler exposes hostel, room and occupancy views.
type HostelHandler struct {
	service service.HostelService
	logger  zerolog.Logger
}

// NewHostelHandler constructs the handler.
func NewHostelHandler(service service.HostelService, logger zerolog.Logger) *HostelHandler {
	return &HostelHandler{
		service: service,
		logger:  logger.With().Str("component", "hostel_handler").Logger(),
	}
}

// RegisterStudent wires the student views, scoped to the caller's gender.
func (h *HostelHandler) RegisterStudent(router fiber.Router) {
	router.Get("/hostels", h.studentHostels)
	router.Get("/rooms/available", h.studentAvailableRooms)
}

// RegisterAdmin wires the staff views.
func (h *HostelHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/hostels/occupancy", h.occupancy)
	router.Get("/rooms/available", h.adminAvailableRooms)
}

func (h *HostelHandler) studentHostels(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	gender, err := h.service.StudentGender(requestContext(c), studentID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to resolve student")
	}

	hostels, err := h.service.ListHostels(requestContext(c), gender)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list hostels")
	}

	return utils.SendSuccess(c, "hostels retrieved", hostels)
}

func (h *HostelHandler) studentAvailableRooms(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	gender, err := h.service.StudentGender(requestContext(c), studentID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to resolve student")
	}

	req, err := parseAvailableRoomsQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	req.Gender = gender

	return h.availableRooms(c, req)
}

func (h *HostelHandler) adminAvailableRooms(c *fiber.Ctx) error {
	req, err := parseAvailableRoomsQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	return h.availableRooms(c, req)
}

func (h *HostelHandler) availableRooms(c *fiber.Ctx, req dto.AvailableRoomsRequest) error {
	rooms, err := h.service.ListAvailableRooms(requestContext(c), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list available rooms")
	}

	return utils.SendSuccess(c, "available rooms retrieved", rooms)
}

func (h *HostelHandler) occupancy(c *fiber.Ctx) error {
	summary, err := h.service.OccupancySummary(requestContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load occupancy summary")
	}

	return utils.SendSuccess(c, "occupancy summary", summary)
}

func parseAvailableRoomsQuery(c *fiber.Ctx) (dto.AvailableRoomsRequest, error) {
	hostelID, err := parseQueryUint(c, "hostel_id")
	if err != nil {
		return dto.AvailableRoomsRequest{}, errors.New("invalid hostel_id")
	}
	capacity, err := parseQueryInt(c, "capacity")
	if err != nil {
		return dto.AvailableRoomsRequest{}, errors.New("invalid capacity")
	}
	return dto.AvailableRoomsRequest{HostelID: hostelID, Capacity: capacity}, nil
}
