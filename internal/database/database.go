package database

import (
	"fmt"
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/drishan/rides-insights/internal/apperrors"
	"github.com/drishan/rides-insights/internal/models"
)

// InitDB opens (or creates) the SQLite store at path and ensures the
// bookings schema exists. Used by the loader.
func InitDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.Booking{}); err != nil {
		return nil, err
	}

	return db, nil
}

// OpenExisting opens an already-loaded store. A missing file or a store
// without the bookings table surfaces as ErrNotFound rather than being
// silently created empty. Used by the API server.
func OpenExisting(path string) (*gorm.DB, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("store %s: %w", path, apperrors.ErrNotFound)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if !db.Migrator().HasTable(&models.Booking{}) {
		return nil, fmt.Errorf("table bookings in %s: %w", path, apperrors.ErrNotFound)
	}

	return db, nil
}

// TableNames lists the user tables in the store.
func TableNames(db *gorm.DB) ([]string, error) {
	var names []string
	err := db.Raw(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
	).Scan(&names).Error
	return names, err
}
