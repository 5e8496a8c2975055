package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ConnectSQLite opens a SQLite database for local runs. SQLite serializes
// writers, so the pool is capped at a single connection.
func ConnectSQLite(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn must not be empty")
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}
