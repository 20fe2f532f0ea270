// Package testutil provides shared helpers for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"contacts-service/internal/repository/gormrepo"
	"contacts-service/pkg/config"
	"contacts-service/pkg/database"
)

// NewSQLiteDB opens a migrated SQLite database in a temp dir that is closed
// when the test ends.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.OpenGorm(&config.DBConfig{
		Driver:   config.DriverSQLite,
		Path:     filepath.Join(t.TempDir(), "contacts.db"),
		LogLevel: logger.Silent,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.CloseGorm(db) })

	if err := gormrepo.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
