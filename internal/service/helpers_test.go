package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/hostel-allocation-api/internal/dto"
	"github.com/noah-isme/hostel-allocation-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return openServiceDB(t, fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name), 1)
}

// setupFileServiceDB opens an on-disk database shared by several connections.
// Transactions begin IMMEDIATE so concurrent writers queue on the busy timeout.
func setupFileServiceDB(t *testing.T, conns int) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hostel.db")
	return openServiceDB(t, path+"?_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate", conns)
}

func openServiceDB(t *testing.T, dsn string, conns int) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.Hostel{},
		&models.Floor{},
		&models.Room{},
		&models.HostelRequest{},
		&models.Allocation{},
		&models.ActivityLog{},
		&models.Notification{},
	))
	return db
}

type testRoom struct {
	floor     string
	number    string
	capacity  int
	occupancy int
}

func createHostel(t *testing.T, db *gorm.DB, name string, gender models.Gender, rooms ...testRoom) (models.Hostel, map[string]models.Room) {
	t.Helper()

	hostel := models.Hostel{Name: name, Gender: gender}
	require.NoError(t, db.Create(&hostel).Error)

	floors := map[string]models.Floor{}
	created := map[string]models.Room{}
	for _, layout := range rooms {
		floor, ok := floors[layout.floor]
		if !ok {
			floor = models.Floor{HostelID: hostel.ID, FloorType: layout.floor}
			require.NoError(t, db.Omit("Hostel").Create(&floor).Error)
			floors[layout.floor] = floor
		}
		room := models.Room{FloorID: floor.ID, RoomNumber: layout.number, Capacity: layout.capacity}
		require.NoError(t, db.Omit("Floor").Create(&room).Error)
		if layout.occupancy > 0 {
			require.NoError(t, db.Model(&room).Update("current_occupancy", layout.occupancy).Error)
			room.CurrentOccupancy = layout.occupancy
		}
		created[layout.number] = room
	}

	return hostel, created
}

func createStudent(t *testing.T, db *gorm.DB, matric string, gender models.Gender) models.Student {
	t.Helper()

	student := models.Student{MatricNo: matric, FullName: "Student " + matric, Gender: gender, Level: models.StudentLevel200}
	require.NoError(t, db.Create(&student).Error)
	return student
}

func roomOccupancy(t *testing.T, db *gorm.DB, roomID uint) int {
	t.Helper()

	var room models.Room
	require.NoError(t, db.First(&room, roomID).Error)
	return room.CurrentOccupancy
}

func requestStatus(t *testing.T, db *gorm.DB, requestID uint) models.RequestStatus {
	t.Helper()

	var request models.HostelRequest
	require.NoError(t, db.First(&request, requestID).Error)
	return request.Status
}

type recordingNotifier struct {
	mu        sync.Mutex
	published []dto.NotificationCreateRequest
	err       error
}

func (n *recordingNotifier) Publish(_ context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return dto.NotificationResponse{}, n.err
	}
	n.published = append(n.published, payload)
	return dto.NotificationResponse{StudentID: payload.StudentID, RequestID: payload.RequestID, Type: payload.Type, Message: payload.Message}, nil
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.published))
	for _, item := range n.published {
		out = append(out, item.Type)
	}
	return out
}
