package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-allocation-api/internal/dto"
	"github.com/noah-isme/hostel-allocation-api/internal/handler"
	"github.com/noah-isme/hostel-allocation-api/internal/service"
)

type stubAdminRequestService struct {
	requests        dto.RequestListResponse
	allocations     dto.AllocationListResponse
	err             error
	lastRequests    dto.RequestListRequest
	lastAllocations dto.AllocationListRequest
}

func (s *stubAdminRequestService) ListRequests(_ context.Context, req dto.RequestListRequest) (dto.RequestListResponse, error) {
	s.lastRequests = req
	return s.requests, s.err
}

func (s *stubAdminRequestService) ListAllocations(_ context.Context, req dto.AllocationListRequest) (dto.AllocationListResponse, error) {
	s.lastAllocations = req
	return s.allocations, s.err
}

var _ service.AdminRequestService = (*stubAdminRequestService)(nil)

func newAdminRequestApp(listings *stubAdminRequestService, allocation *stubAllocationService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/admin", asUser(900, "staff"))
	handler.NewAdminRequestHandler(listings, allocation, testLogger()).Register(group)
	return app
}

func TestAdminRequestHandler_ApproveWithReallocate(t *testing.T) {
	allocation := &stubAllocationService{decision: dto.DecisionResponse{
		Outcome: dto.OutcomeMoved,
		Request: dto.HostelRequestResponse{ID: 7, Status: "APPROVED"},
		Allocation: &dto.AllocationResponse{
			StudentID: 12,
			Room:      dto.RoomResponse{RoomID: 4, Label: "Mary GF 102 (1/2)"},
		},
	}}
	app := newAdminRequestApp(&stubAdminRequestService{}, allocation)

	resp := doRequest(t, app, http.MethodPost, "/api/v1/admin/requests/7/approve?reallocate=true", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var decision dto.DecisionResponse
	payload := decodeEnvelope(t, resp, &decision)
	require.Equal(t, "hostel request moved", payload.Message)
	require.Equal(t, "Mary GF 102 (1/2)", decision.Allocation.Room.Label)

	require.Equal(t, uint(7), allocation.lastID)
	require.True(t, allocation.lastOpts.Reallocate)
	require.Equal(t, uint(900), allocation.lastActor.ID)
	require.Equal(t, "staff", allocation.lastActor.Role)
}

func TestAdminRequestHandler_ApproveErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "no room", err: service.ErrNoRoomAvailable, status: fiber.StatusConflict},
		{name: "closed", err: service.ErrRequestClosed, status: fiber.StatusConflict},
		{name: "missing", err: service.ErrRequestNotFound, status: fiber.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newAdminRequestApp(&stubAdminRequestService{}, &stubAllocationService{decisionErr: tc.err})

			resp := doRequest(t, app, http.MethodPost, "/api/v1/admin/requests/3/approve", nil)
			require.Equal(t, tc.status, resp.StatusCode)

			payload := decodeEnvelope(t, resp, nil)
			require.Equal(t, tc.err.Error(), payload.Message)
		})
	}
}

func TestAdminRequestHandler_BadParams(t *testing.T) {
	allocation := &stubAllocationService{}
	app := newAdminRequestApp(&stubAdminRequestService{}, allocation)

	for _, path := range []string{
		"/api/v1/admin/requests/abc/approve",
		"/api/v1/admin/requests/0/approve",
		"/api/v1/admin/requests/3/approve?reallocate=maybe",
		"/api/v1/admin/requests/abc/reject",
	} {
		resp := doRequest(t, app, http.MethodPost, path, nil)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, path)
	}
	require.Zero(t, allocation.approveCalls)
	require.Zero(t, allocation.rejectCalls)
}

func TestAdminRequestHandler_Reject(t *testing.T) {
	allocation := &stubAllocationService{decision: dto.DecisionResponse{
		Outcome: dto.OutcomeRejected,
		Request: dto.HostelRequestResponse{ID: 9, Status: "REJECTED"},
	}}
	app := newAdminRequestApp(&stubAdminRequestService{}, allocation)

	resp := doRequest(t, app, http.MethodPost, "/api/v1/admin/requests/9/reject", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var decision dto.DecisionResponse
	payload := decodeEnvelope(t, resp, &decision)
	require.Equal(t, "hostel request rejected", payload.Message)
	require.Equal(t, "REJECTED", decision.Request.Status)
	require.Equal(t, 1, allocation.rejectCalls)
	require.Equal(t, uint(9), allocation.lastID)
}

func TestAdminRequestHandler_BatchRoutesAreNotIDs(t *testing.T) {
	allocation := &stubAllocationService{batch: dto.BatchDecisionResponse{
		Results: []dto.BatchItemResult{
			{RequestID: 1, Outcome: dto.OutcomeApproved},
			{RequestID: 2, Outcome: dto.OutcomeNoRoom, Error: service.ErrNoRoomAvailable.Error()},
		},
		Counts: map[string]int{dto.OutcomeApproved: 1, dto.OutcomeNoRoom: 1},
	}}
	app := newAdminRequestApp(&stubAdminRequestService{}, allocation)

	resp := doRequest(t, app, http.MethodPost, "/api/v1/admin/requests/batch/approve", map[string]interface{}{"request_ids": []uint{1, 2}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var batch dto.BatchDecisionResponse
	decodeEnvelope(t, resp, &batch)
	require.Len(t, batch.Results, 2)
	require.Equal(t, 1, batch.Counts[dto.OutcomeNoRoom])
	require.Equal(t, []uint{1, 2}, allocation.lastBatch.RequestIDs)
	require.Equal(t, 1, allocation.batchApproved)
	require.Zero(t, allocation.approveCalls)

	resp = doRequest(t, app, http.MethodPost, "/api/v1/admin/requests/batch/reject", map[string]interface{}{"request_ids": []uint{4}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()
	require.Equal(t, 1, allocation.batchRejected)
	require.Zero(t, allocation.rejectCalls)
}

func TestAdminRequestHandler_ListRequests(t *testing.T) {
	listings := &stubAdminRequestService{requests: dto.RequestListResponse{
		Items:      []dto.HostelRequestResponse{{ID: 1, Status: "PENDING"}},
		Counts:     dto.RequestCountsResponse{Total: 3, Pending: 1, Approved: 1, Rejected: 1},
		Pagination: dto.NewPaginationMeta(2, 10, 11),
	}}
	app := newAdminRequestApp(listings, &stubAllocationService{})

	resp := doRequest(t, app, http.MethodGet, "/api/v1/admin/requests?page=2&page_size=10&hostel_id=4&status=pending", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var list dto.RequestListResponse
	decodeEnvelope(t, resp, &list)
	require.Len(t, list.Items, 1)
	require.Equal(t, int64(3), list.Counts.Total)
	require.Equal(t, 2, list.Pagination.TotalPages)

	require.Equal(t, dto.RequestListRequest{Page: 2, PageSize: 10, HostelID: 4, Status: "pending"}, listings.lastRequests)

	resp = doRequest(t, app, http.MethodGet, "/api/v1/admin/requests?page=two", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminRequestHandler_ListAllocations(t *testing.T) {
	listings := &stubAdminRequestService{allocations: dto.AllocationListResponse{
		Items:      []dto.AllocationResponse{{ID: 1, StudentID: 12}},
		Pagination: dto.NewPaginationMeta(1, 20, 1),
	}}
	app := newAdminRequestApp(listings, &stubAllocationService{})

	resp := doRequest(t, app, http.MethodGet, "/api/v1/admin/allocations?hostel_id=2", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var list dto.AllocationListResponse
	decodeEnvelope(t, resp, &list)
	require.Len(t, list.Items, 1)
	require.Equal(t, uint(2), listings.lastAllocations.HostelID)
}

func TestAdminRequestHandler_Reconcile(t *testing.T) {
	allocation := &stubAllocationService{reconcile: dto.ReconcileResponse{
		Repaired: []dto.OccupancyRepair{{RoomID: 4, Capacity: 2, Recorded: 2, Allocated: 1}},
		Breaches: []dto.OccupancyRepair{},
	}}
	app := newAdminRequestApp(&stubAdminRequestService{}, allocation)

	resp := doRequest(t, app, http.MethodPost, "/api/v1/admin/maintenance/reconcile-occupancy", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result dto.ReconcileResponse
	payload := decodeEnvelope(t, resp, &result)
	require.Equal(t, "occupancy reconciled", payload.Message)
	require.Len(t, result.Repaired, 1)
	require.Equal(t, 1, result.Repaired[0].Allocated)
	require.Equal(t, uint(900), allocation.lastActor.ID)
}
