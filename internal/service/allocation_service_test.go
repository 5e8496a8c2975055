package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/hostel-allocation-api/internal/dto"
	"github.com/noah-isme/hostel-allocation-api/internal/models"
	"github.com/noah-isme/hostel-allocation-api/internal/repository"
)

var staff = ActivityActor{ID: 900, Role: "admin", CorrelationID: "corr-test"}

type engineFixture struct {
	db       *gorm.DB
	svc      AllocationService
	activity *memoryActivityRepo
	notifier *recordingNotifier
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	return newEngineFixtureOn(t, setupServiceDB(t))
}

func newEngineFixtureOn(t *testing.T, db *gorm.DB) *engineFixture {
	t.Helper()

	fixture := &engineFixture{
		db:       db,
		activity: &memoryActivityRepo{},
		notifier: &recordingNotifier{},
	}
	fixture.svc = NewAllocationService(
		repository.NewAllocationRepository(db),
		repository.NewRequestRepository(db),
		testValidator(),
		NewActivityService(fixture.activity, testLogger()),
		fixture.notifier,
		testLogger(),
	)
	return fixture
}

func studentActor(student models.Student) ActivityActor {
	return ActivityActor{ID: student.ID, Role: "student"}
}

func (f *engineFixture) submit(t *testing.T, student models.Student, hostelID uint, capacity int) dto.HostelRequestResponse {
	t.Helper()

	resp, err := f.svc.Submit(context.Background(), studentActor(student), dto.HostelRequestCreateRequest{
		HostelID:          hostelID,
		PreferredCapacity: capacity,
	})
	require.NoError(t, err)
	return resp
}

func (f *engineFixture) assertRoomInvariants(t *testing.T) {
	t.Helper()

	var rooms []models.Room
	require.NoError(t, f.db.Find(&rooms).Error)
	for _, room := range rooms {
		require.NoError(t, room.CheckInvariant())

		var allocated int64
		require.NoError(t, f.db.Model(&models.Allocation{}).Where("room_id = ?", room.ID).Count(&allocated).Error)
		require.Equal(t, int64(room.CurrentOccupancy), allocated, "room %s occupancy must match allocations", room.RoomNumber)
	}
}

func TestAllocationServiceApproveAllocatesFirstRoom(t *testing.T) {
	f := newEngineFixture(t)
	mary, rooms := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2},
	)
	s1 := createStudent(t, f.db, "BIO/001", models.GenderFemale)

	request := f.submit(t, s1, mary.ID, 2)
	require.Equal(t, string(models.RequestStatusPending), request.Status)
	require.Equal(t, "Mary", request.HostelName)

	decision, err := f.svc.Approve(context.Background(), request.ID, ApproveOptions{}, staff)
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeApproved, decision.Outcome)
	require.Equal(t, string(models.RequestStatusApproved), decision.Request.Status)
	require.NotNil(t, decision.Request.ReviewedBy)
	require.Equal(t, staff.ID, *decision.Request.ReviewedBy)
	require.NotNil(t, decision.Allocation)
	require.Equal(t, rooms["101"].ID, decision.Allocation.Room.RoomID)
	require.Equal(t, "Mary GF 101 (1/2)", decision.Allocation.Room.Label)

	require.Equal(t, 1, roomOccupancy(t, f.db, rooms["101"].ID))
	require.Equal(t, []string{models.NotificationRequestApproved}, f.notifier.types())
	require.Equal(t, []string{models.ActivityRequestSubmitted, models.ActivityRequestApproved}, f.activity.actions())
	require.Equal(t, "corr-test", f.activity.entries[1].CorrelationID)
	f.assertRoomInvariants(t)
}

func TestAllocationServiceApproveFullHostelLeavesRequestPending(t *testing.T) {
	f := newEngineFixture(t)
	mary, rooms := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2},
	)
	s1 := createStudent(t, f.db, "BIO/001", models.GenderFemale)
	s2 := createStudent(t, f.db, "BIO/002", models.GenderFemale)
	s3 := createStudent(t, f.db, "BIO/003", models.GenderFemale)

	for _, student := range []models.Student{s1, s2} {
		request := f.submit(t, student, mary.ID, 2)
		_, err := f.svc.Approve(context.Background(), request.ID, ApproveOptions{}, staff)
		require.NoError(t, err)
	}
	require.Equal(t, 2, roomOccupancy(t, f.db, rooms["101"].ID))

	pending := f.submit(t, s3, mary.ID, 2)
	_, err := f.svc.Approve(context.Background(), pending.ID, ApproveOptions{}, staff)
	require.ErrorIs(t, err, ErrNoRoomAvailable)

	require.Equal(t, models.RequestStatusPending, requestStatus(t, f.db, pending.ID))
	require.Equal(t, 2, roomOccupancy(t, f.db, rooms["101"].ID))

	var allocations int64
	require.NoError(t, f.db.Model(&models.Allocation{}).Where("student_id = ?", s3.ID).Count(&allocations).Error)
	require.Zero(t, allocations)
	f.assertRoomInvariants(t)
}

func TestAllocationServiceSubmitRejectsGenderMismatch(t *testing.T) {
	f := newEngineFixture(t)
	mary, _ := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2},
	)
	male := createStudent(t, f.db, "CSC/001", models.GenderMale)

	_, err := f.svc.Submit(context.Background(), studentActor(male), dto.HostelRequestCreateRequest{
		HostelID:          mary.ID,
		PreferredCapacity: 2,
	})
	require.ErrorIs(t, err, ErrGenderMismatch)

	var count int64
	require.NoError(t, f.db.Model(&models.HostelRequest{}).Count(&count).Error)
	require.Zero(t, count)
	require.Empty(t, f.activity.entries)
}

func TestAllocationServiceSubmitRejectsDuplicateActiveRequest(t *testing.T) {
	f := newEngineFixture(t)
	mary, _ := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2},
	)
	esther, _ := createHostel(t, f.db, "Esther", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 4},
	)
	s1 := createStudent(t, f.db, "BIO/001", models.GenderFemale)

	f.submit(t, s1, mary.ID, 2)

	_, err := f.svc.Submit(context.Background(), studentActor(s1), dto.HostelRequestCreateRequest{
		HostelID:          esther.ID,
		PreferredCapacity: 4,
	})
	require.ErrorIs(t, err, ErrDuplicateActiveRequest)

	var count int64
	require.NoError(t, f.db.Model(&models.HostelRequest{}).Where("student_id = ?", s1.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestAllocationServiceSubmitAfterRejectionIsAllowed(t *testing.T) {
	f := newEngineFixture(t)
	mary, _ := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2},
	)
	s1 := createStudent(t, f.db, "BIO/001", models.GenderFemale)

	first := f.submit(t, s1, mary.ID, 2)
	_, err := f.svc.Reject(context.Background(), first.ID, staff)
	require.NoError(t, err)

	second := f.submit(t, s1, mary.ID, 2)
	require.NotEqual(t, first.ID, second.ID)
}

func TestAllocationServiceSubmitPreferredRoomChecks(t *testing.T) {
	f := newEngineFixture(t)
	mary, maryRooms := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2, occupancy: 2},
		testRoom{floor: models.FloorGround, number: "102", capacity: 4},
	)
	_, estherRooms := createHostel(t, f.db, "Esther", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2},
	)
	s1 := createStudent(t, f.db, "BIO/001", models.GenderFemale)
	actor := studentActor(s1)

	submit := func(capacity int, roomID uint) error {
		_, err := f.svc.Submit(context.Background(), actor, dto.HostelRequestCreateRequest{
			HostelID:          mary.ID,
			PreferredCapacity: capacity,
			PreferredRoomID:   &roomID,
		})
		return err
	}

	require.ErrorIs(t, submit(2, estherRooms["101"].ID), ErrRoomNotInHostel)
	require.ErrorIs(t, submit(2, maryRooms["102"].ID), ErrCapacityMismatch)
	require.ErrorIs(t, submit(2, maryRooms["101"].ID), ErrRoomFull)
	require.ErrorIs(t, submit(2, 9999), ErrRoomNotFound)
	require.NoError(t, submit(4, maryRooms["102"].ID))
}

func TestAllocationServiceSubmitValidatesPayload(t *testing.T) {
	f := newEngineFixture(t)
	mary, _ := createHostel(t, f.db, "Mary", models.GenderFemale)
	s1 := createStudent(t, f.db, "BIO/001", models.GenderFemale)

	_, err := f.svc.Submit(context.Background(), studentActor(s1), dto.HostelRequestCreateRequest{
		HostelID:          mary.ID,
		PreferredCapacity: 3,
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrRequestRejected)

	_, err = f.svc.Submit(context.Background(), ActivityActor{ID: 4242, Role: "student"}, dto.HostelRequestCreateRequest{
		HostelID:          mary.ID,
		PreferredCapacity: 2,
	})
	require.ErrorIs(t, err, ErrStudentNotFound)

	_, err = f.svc.Submit(context.Background(), studentActor(s1), dto.HostelRequestCreateRequest{
		HostelID:          mary.ID + 100,
		PreferredCapacity: 2,
	})
	require.ErrorIs(t, err, ErrHostelNotFound)
}

func TestAllocationServiceSubmitSanitizesNote(t *testing.T) {
	f := newEngineFixture(t)
	mary, _ := createHostel(t, f.db, "Mary", models.GenderFemale)
	s1 := createStudent(t, f.db, "BIO/001", models.GenderFemale)

	resp, err := f.svc.Submit(context.Background(), studentActor(s1), dto.HostelRequestCreateRequest{
		HostelID:          mary.ID,
		PreferredCapacity: 2,
		Note:              "<script>alert(1)</script>near the library",
	})
	require.NoError(t, err)
	require.Equal(t, "near the library", resp.Note)
}

func TestAllocationServiceApproveTwiceIsNoop(t *testing.T) {
	f := newEngineFixture(t)
	mary, rooms := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2},
		testRoom{floor: models.FloorGround, number: "102", capacity: 2},
	)
	s1 := createStudent(t, f.db, "BIO/001", models.GenderFemale)
	request := f.submit(t, s1, mary.ID, 2)

	first, err := f.svc.Approve(context.Background(), request.ID, ApproveOptions{}, staff)
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeApproved, first.Outcome)

	second, err := f.svc.Approve(context.Background(), request.ID, ApproveOptions{}, staff)
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeUnchanged, second.Outcome)
	require.Equal(t, first.Allocation.Room.RoomID, second.Allocation.Room.RoomID)

	require.Equal(t, 1, roomOccupancy(t, f.db, rooms["101"].ID))
	require.Equal(t, 0, roomOccupancy(t, f.db, rooms["102"].ID))
	require.Len(t, f.notifier.types(), 1)
	f.assertRoomInvariants(t)
}

func TestAllocationServiceReallocateMovesStudent(t *testing.T) {
	f := newEngineFixture(t)
	mary, rooms := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2},
		testRoom{floor: models.FloorFirst, number: "201", capacity: 2},
	)
	s1 := createStudent(t, f.db, "BIO/001", models.GenderFemale)
	request := f.submit(t, s1, mary.ID, 2)

	_, err := f.svc.Approve(context.Background(), request.ID, ApproveOptions{}, staff)
	require.NoError(t, err)
	require.Equal(t, 1, roomOccupancy(t, f.db, rooms["101"].ID))

	moved, err := f.svc.Approve(context.Background(), request.ID, ApproveOptions{Reallocate: true}, staff)
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeMoved, moved.Outcome)
	require.Equal(t, rooms["201"].ID, moved.Allocation.Room.RoomID)

	require.Equal(t, 0, roomOccupancy(t, f.db, rooms["101"].ID))
	require.Equal(t, 1, roomOccupancy(t, f.db, rooms["201"].ID))

	var allocations int64
	require.NoError(t, f.db.Model(&models.Allocation{}).Where("student_id = ?", s1.ID).Count(&allocations).Error)
	require.Equal(t, int64(1), allocations)

	require.Equal(t, []string{models.NotificationRequestApproved, models.NotificationRoomChanged}, f.notifier.types())
	require.Contains(t, f.activity.actions(), models.ActivityAllocationMoved)
	f.assertRoomInvariants(t)
}

func TestAllocationServiceReallocateWithoutOtherRoomKeepsAllocation(t *testing.T) {
	f := newEngineFixture(t)
	mary, rooms := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2},
	)
	s1 := createStudent(t, f.db, "BIO/001", models.GenderFemale)
	request := f.submit(t, s1, mary.ID, 2)

	_, err := f.svc.Approve(context.Background(), request.ID, ApproveOptions{}, staff)
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), request.ID, ApproveOptions{Reallocate: true}, staff)
	require.ErrorIs(t, err, ErrNoRoomAvailable)
	require.Equal(t, 1, roomOccupancy(t, f.db, rooms["101"].ID))
	require.Equal(t, models.RequestStatusApproved, requestStatus(t, f.db, request.ID))
	f.assertRoomInvariants(t)
}

func TestAllocationServiceApproveFallsBackToAnyCapacity(t *testing.T) {
	f := newEngineFixture(t)
	mary, rooms := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 4, occupancy: 4},
		testRoom{floor: models.FloorFirst, number: "201", capacity: 6, occupancy: 1},
		testRoom{floor: models.FloorGround, number: "102", capacity: 2, occupancy: 1},
	)
	s1 := createStudent(t, f.db, "BIO/001", models.GenderFemale)
	// occupancy of seeded rooms is not backed by allocations, so invariants are not asserted here.
	request := f.submit(t, s1, mary.ID, 4)

	decision, err := f.svc.Approve(context.Background(), request.ID, ApproveOptions{}, staff)
	require.NoError(t, err)
	require.Equal(t, rooms["102"].ID, decision.Allocation.Room.RoomID, "ground floor room wins the second pass")
	require.Equal(t, 2, roomOccupancy(t, f.db, rooms["102"].ID))
	require.Equal(t, 1, roomOccupancy(t, f.db, rooms["201"].ID))
}

func TestAllocationServiceApproveMissingRequest(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.svc.Approve(context.Background(), 404, ApproveOptions{}, staff)
	require.ErrorIs(t, err, ErrRequestNotFound)

	_, err = f.svc.Reject(context.Background(), 404, staff)
	require.ErrorIs(t, err, ErrRequestNotFound)
}

func TestAllocationServiceRejectLifecycle(t *testing.T) {
	f := newEngineFixture(t)
	mary, rooms := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2},
	)
	s1 := createStudent(t, f.db, "BIO/001", models.GenderFemale)
	s2 := createStudent(t, f.db, "BIO/002", models.GenderFemale)

	pending := f.submit(t, s1, mary.ID, 2)
	rejected, err := f.svc.Reject(context.Background(), pending.ID, staff)
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeRejected, rejected.Outcome)
	require.Equal(t, string(models.RequestStatusRejected), rejected.Request.Status)
	require.Nil(t, rejected.Allocation)
	require.Equal(t, []string{models.NotificationRequestRejected}, f.notifier.types())
	require.Contains(t, f.notifier.published[0].Message, "Mary")

	again, err := f.svc.Reject(context.Background(), pending.ID, staff)
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeUnchanged, again.Outcome)
	require.Len(t, f.notifier.types(), 1)

	_, err = f.svc.Approve(context.Background(), pending.ID, ApproveOptions{}, staff)
	require.ErrorIs(t, err, ErrRequestClosed)
	require.Equal(t, 0, roomOccupancy(t, f.db, rooms["101"].ID))

	approved := f.submit(t, s2, mary.ID, 2)
	_, err = f.svc.Approve(context.Background(), approved.ID, ApproveOptions{}, staff)
	require.NoError(t, err)

	noop, err := f.svc.Reject(context.Background(), approved.ID, staff)
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeUnchanged, noop.Outcome)
	require.Equal(t, models.RequestStatusApproved, requestStatus(t, f.db, approved.ID))
	require.Equal(t, 1, roomOccupancy(t, f.db, rooms["101"].ID))
	f.assertRoomInvariants(t)
}

func TestAllocationServiceBatchApprove(t *testing.T) {
	f := newEngineFixture(t)
	mary, _ := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2},
	)
	var ids []uint
	for i := 1; i <= 3; i++ {
		student := createStudent(t, f.db, fmt.Sprintf("BIO/%03d", i), models.GenderFemale)
		ids = append(ids, f.submit(t, student, mary.ID, 2).ID)
	}
	ids = append(ids, 9999, ids[0])

	resp, err := f.svc.BatchApprove(context.Background(), dto.BatchDecisionRequest{RequestIDs: ids}, staff)
	require.NoError(t, err)
	require.Len(t, resp.Results, 4, "duplicate ids are decided once")
	require.Equal(t, dto.OutcomeApproved, resp.Results[0].Outcome)
	require.Equal(t, dto.OutcomeApproved, resp.Results[1].Outcome)
	require.Equal(t, dto.OutcomeNoRoom, resp.Results[2].Outcome)
	require.NotEmpty(t, resp.Results[2].Error)
	require.Equal(t, dto.OutcomeNotFound, resp.Results[3].Outcome)
	require.Equal(t, map[string]int{dto.OutcomeApproved: 2, dto.OutcomeNoRoom: 1, dto.OutcomeNotFound: 1}, resp.Counts)
	f.assertRoomInvariants(t)

	_, err = f.svc.BatchApprove(context.Background(), dto.BatchDecisionRequest{}, staff)
	require.Error(t, err)
}

func TestAllocationServiceBatchReject(t *testing.T) {
	f := newEngineFixture(t)
	mary, _ := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2},
	)
	s1 := createStudent(t, f.db, "BIO/001", models.GenderFemale)
	s2 := createStudent(t, f.db, "BIO/002", models.GenderFemale)
	first := f.submit(t, s1, mary.ID, 2)
	second := f.submit(t, s2, mary.ID, 2)
	_, err := f.svc.Approve(context.Background(), second.ID, ApproveOptions{}, staff)
	require.NoError(t, err)

	resp, err := f.svc.BatchReject(context.Background(), dto.BatchDecisionRequest{RequestIDs: []uint{first.ID, second.ID}}, staff)
	require.NoError(t, err)
	require.Equal(t, map[string]int{dto.OutcomeRejected: 1, dto.OutcomeUnchanged: 1}, resp.Counts)
	require.Equal(t, models.RequestStatusRejected, requestStatus(t, f.db, first.ID))
	require.Equal(t, models.RequestStatusApproved, requestStatus(t, f.db, second.ID))
}

func TestAllocationServiceKeepsInvariantsAcrossManyApprovals(t *testing.T) {
	f := newEngineFixture(t)
	mary, _ := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2},
		testRoom{floor: models.FloorGround, number: "102", capacity: 4},
		testRoom{floor: models.FloorFirst, number: "201", capacity: 2},
	)
	daniel, _ := createHostel(t, f.db, "Daniel", models.GenderMale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 6},
	)

	approved := 0
	for i := 0; i < 12; i++ {
		gender, hostelID := models.GenderFemale, mary.ID
		if i%3 == 0 {
			gender, hostelID = models.GenderMale, daniel.ID
		}
		student := createStudent(t, f.db, fmt.Sprintf("MIX/%03d", i), gender)
		request := f.submit(t, student, hostelID, []int{2, 4, 6}[i%3])

		_, err := f.svc.Approve(context.Background(), request.ID, ApproveOptions{Reallocate: i%4 == 0}, staff)
		if err != nil {
			require.ErrorIs(t, err, ErrNoRoomAvailable)
			continue
		}
		approved++
	}

	require.Equal(t, 12, approved, "8 female beds and 6 male beds cover 8 female and 4 male students")
	f.assertRoomInvariants(t)

	var mismatched int64
	require.NoError(t, f.db.Model(&models.Allocation{}).
		Joins("JOIN students ON students.id = allocations.student_id").
		Joins("JOIN rooms ON rooms.id = allocations.room_id").
		Joins("JOIN floors ON floors.id = rooms.floor_id").
		Joins("JOIN hostels ON hostels.id = floors.hostel_id").
		Where("hostels.gender <> students.gender").
		Count(&mismatched).Error)
	require.Zero(t, mismatched)
}

func TestAllocationServiceReconcileOccupancy(t *testing.T) {
	f := newEngineFixture(t)
	_, rooms := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2, occupancy: 2},
		testRoom{floor: models.FloorGround, number: "102", capacity: 2},
		testRoom{floor: models.FloorGround, number: "103", capacity: 2, occupancy: 2},
	)
	for i, roomNumber := range []string{"102", "103", "103", "103"} {
		student := createStudent(t, f.db, fmt.Sprintf("BIO/%03d", i), models.GenderFemale)
		require.NoError(t, f.db.Omit("Student", "Room").Create(&models.Allocation{
			StudentID:   student.ID,
			RoomID:      rooms[roomNumber].ID,
			AllocatedAt: time.Now(),
		}).Error)
	}

	resp, err := f.svc.ReconcileOccupancy(context.Background(), staff)
	require.NoError(t, err)
	require.Len(t, resp.Repaired, 2)
	require.Equal(t, rooms["101"].ID, resp.Repaired[0].RoomID)
	require.Equal(t, rooms["102"].ID, resp.Repaired[1].RoomID)
	require.Len(t, resp.Breaches, 1)
	require.Equal(t, dto.OccupancyRepair{RoomID: rooms["103"].ID, Capacity: 2, Recorded: 2, Allocated: 3}, resp.Breaches[0])

	require.Equal(t, 0, roomOccupancy(t, f.db, rooms["101"].ID))
	require.Equal(t, 1, roomOccupancy(t, f.db, rooms["102"].ID))
	require.Equal(t, 2, roomOccupancy(t, f.db, rooms["103"].ID), "breaches are reported, never clamped")
	require.Equal(t, []string{models.ActivityOccupancyReconciled}, f.activity.actions())

	again, err := f.svc.ReconcileOccupancy(context.Background(), staff)
	require.NoError(t, err)
	require.Empty(t, again.Repaired)
	require.Len(t, again.Breaches, 1)
}

func TestAllocationServiceSideChannelFailuresDoNotUndoApproval(t *testing.T) {
	f := newEngineFixture(t)
	f.notifier.err = fmt.Errorf("broker down")
	mary, rooms := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2},
	)
	s1 := createStudent(t, f.db, "BIO/001", models.GenderFemale)
	request := f.submit(t, s1, mary.ID, 2)

	decision, err := f.svc.Approve(context.Background(), request.ID, ApproveOptions{}, staff)
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeApproved, decision.Outcome)
	require.Equal(t, 1, roomOccupancy(t, f.db, rooms["101"].ID))
}

func TestAllocationServiceConcurrentApprovalsFillLastBedOnce(t *testing.T) {
	const contenders = 8

	f := newEngineFixtureOn(t, setupFileServiceDB(t, contenders))
	mary, rooms := createHostel(t, f.db, "Mary", models.GenderFemale,
		testRoom{floor: models.FloorGround, number: "101", capacity: 2},
	)

	occupant := createStudent(t, f.db, "BIO/000", models.GenderFemale)
	first, err := f.svc.Approve(context.Background(), f.submit(t, occupant, mary.ID, 2).ID, ApproveOptions{}, staff)
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeApproved, first.Outcome)
	require.Equal(t, 1, roomOccupancy(t, f.db, rooms["101"].ID))

	requestIDs := make([]uint, 0, contenders)
	for i := 0; i < contenders; i++ {
		student := createStudent(t, f.db, fmt.Sprintf("BIO/%03d", i+1), models.GenderFemale)
		requestIDs = append(requestIDs, f.submit(t, student, mary.ID, 2).ID)
	}

	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		outcomes = make([]string, contenders)
		errs     = make([]error, contenders)
	)
	for i, requestID := range requestIDs {
		wg.Add(1)
		go func(i int, requestID uint) {
			defer wg.Done()
			<-start
			decision, err := f.svc.Approve(context.Background(), requestID, ApproveOptions{}, staff)
			outcomes[i], errs[i] = decision.Outcome, err
		}(i, requestID)
	}
	close(start)
	wg.Wait()

	approved, noRoom := 0, 0
	for i := range requestIDs {
		switch {
		case errs[i] == nil:
			require.Equal(t, dto.OutcomeApproved, outcomes[i])
			approved++
		case errors.Is(errs[i], ErrNoRoomAvailable):
			noRoom++
		default:
			t.Fatalf("request %d: unexpected error %v", requestIDs[i], errs[i])
		}
	}

	require.Equal(t, 1, approved)
	require.Equal(t, contenders-1, noRoom)
	require.Equal(t, 2, roomOccupancy(t, f.db, rooms["101"].ID))

	var pending int64
	require.NoError(t, f.db.Model(&models.HostelRequest{}).Where("status = ?", models.RequestStatusPending).Count(&pending).Error)
	require.Equal(t, int64(contenders-1), pending)
	f.assertRoomInvariants(t)
}
