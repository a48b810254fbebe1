package persistence

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewSQLiteDB opens the embedded database. Repositories run their own
// automigrations on construction. busy_timeout keeps concurrent writers
// (poller, cleaner, on-demand refresh) from tripping over SQLITE_BUSY.
func NewSQLiteDB(path string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL", path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// A single writer connection sidesteps sqlite write contention.
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}
