package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/hostel-allocation-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
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

type roomLayout struct {
	floor     string
	number    string
	capacity  int
	occupancy int
}

func seedHostel(t *testing.T, db *gorm.DB, name string, gender models.Gender, rooms ...roomLayout) (models.Hostel, map[string]models.Room) {
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

func seedStudent(t *testing.T, db *gorm.DB, matric string, gender models.Gender) models.Student {
	t.Helper()

	student := models.Student{MatricNo: matric, FullName: "Student " + matric, Gender: gender, Level: models.StudentLevel100}
	require.NoError(t, db.Create(&student).Error)
	return student
}
