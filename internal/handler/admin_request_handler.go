package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hostel-allocation-api/internal/dto"
	"github.com/noah-isme/hostel-allocation-api/internal/service"
	"github.com/noah-isme/hostel-allocation-api/internal/utils"
)

// AdminRequestHandler exposes the staff request queue, decisions and allocation overview.
type AdminRequestHandler struct {
	listings   service.AdminRequestService
	allocation service.AllocationService
	logger     zerolog.Logger
}

// NewAdminRequestHandler constructs the handler.
func NewAdminRequestHandler(listings service.AdminRequestService, allocation service.AllocationService, logger zerolog.Logger) *AdminRequestHandler {
	return &AdminRequestHandler{
		listings:   listings,
		allocation: allocation,
		logger:     logger.With().Str("component", "admin_request_handler").Logger(),
	}
}

// Register wires the staff routes. Batch routes are registered before the
// :id routes so "batch" is never parsed as a request id.
func (h *AdminRequestHandler) Register(router fiber.Router) {
	router.Get("/requests", h.listRequests)
	router.Post("/requests/batch/approve", h.batchApprove)
	router.Post("/requests/batch/reject", h.batchReject)
	router.Post("/requests/:id/approve", h.approve)
	router.Post("/requests/:id/reject", h.reject)
	router.Get("/allocations", h.listAllocations)
	router.Post("/maintenance/reconcile-occupancy", h.reconcile)
}

func (h *AdminRequestHandler) listRequests(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	hostelID, err := parseQueryUint(c, "hostel_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid hostel id")
	}

	response, err := h.listings.ListRequests(requestContext(c), dto.RequestListRequest{
		Page:     page,
		PageSize: pageSize,
		HostelID: hostelID,
		Status:   c.Query("status"),
	})
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list hostel requests")
	}

	return utils.SendSuccess(c, "hostel requests", response)
}

func (h *AdminRequestHandler) approve(c *fiber.Ctx) error {
	requestID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request id")
	}

	reallocate := false
	if raw := c.Query("reallocate"); raw != "" {
		reallocate, err = strconv.ParseBool(raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid reallocate flag")
		}
	}

	decision, err := h.allocation.Approve(requestContext(c), requestID, service.ApproveOptions{Reallocate: reallocate}, activityActorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to approve hostel request")
	}

	return utils.SendSuccess(c, "hostel request "+decision.Outcome, decision)
}

func (h *AdminRequestHandler) reject(c *fiber.Ctx) error {
	requestID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request id")
	}

	decision, err := h.allocation.Reject(requestContext(c), requestID, activityActorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to reject hostel request")
	}

	return utils.SendSuccess(c, "hostel request "+decision.Outcome, decision)
}

func (h *AdminRequestHandler) batchApprove(c *fiber.Ctx) error {
	var payload dto.BatchDecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.allocation.BatchApprove(requestContext(c), payload, activityActorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to approve hostel requests")
	}

	return utils.SendSuccess(c, "batch approval processed", response)
}

func (h *AdminRequestHandler) batchReject(c *fiber.Ctx) error {
	var payload dto.BatchDecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.allocation.BatchReject(requestContext(c), payload, activityActorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to reject hostel requests")
	}

	return utils.SendSuccess(c, "batch rejection processed", response)
}

func (h *AdminRequestHandler) listAllocations(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	hostelID, err := parseQueryUint(c, "hostel_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid hostel id")
	}

	response, err := h.listings.ListAllocations(requestContext(c), dto.AllocationListRequest{
		Page:     page,
		PageSize: pageSize,
		HostelID: hostelID,
	})
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list allocations")
	}

	return utils.SendSuccess(c, "allocations", response)
}

func (h *AdminRequestHandler) reconcile(c *fiber.Ctx) error {
	response, err := h.allocation.ReconcileOccupancy(requestContext(c), activityActorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to reconcile occupancy")
	}

	return utils.SendSuccess(c, "occupancy reconciled", response)
}
