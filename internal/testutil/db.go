// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/middleware"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory database private to t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(database.MemoryDSN("test-"+uuid.NewString())), middleware.Logger)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := database.ConfigurePool(db, config.DriverMemory); err != nil {
		t.Fatalf("configure test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewMockDB returns a gorm handle on the postgres dialect backed by sqlmock.
func NewMockDB(t testing.TB) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open mock database: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db, mock
}
