package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/hostel-allocation-api/internal/models"
)

// Connect opens the store selected by driver.
func Connect(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case "postgres":
		return ConnectPostgres(dsn)
	case "sqlite":
		return ConnectSQLite(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Migrate creates or updates the allocation schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Student{},
		&models.Hostel{},
		&models.Floor{},
		&models.Room{},
		&models.HostelRequest{},
		&models.Allocation{},
		&models.ActivityLog{},
		&models.Notification{},
	)
}
