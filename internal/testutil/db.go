package testutil

import (
	"testing"

	"github.com/arisehq/levelup/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTestDB returns an isolated in-memory database with the full schema
// applied. Each call gets its own database; the single-connection cap keeps
// SQLite from handing separate connections separate memories.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access underlying database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&model.User{},
		&model.Goal{},
		&model.Step{},
		&model.Habit{},
		&model.HabitStep{},
		&model.HabitLog{},
		&model.Badge{},
		&model.UserBadge{},
		&model.Notification{},
		&model.ResetRun{},
	); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	return db
}
