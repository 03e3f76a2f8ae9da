package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sessionRowID pins the table to a single row
const sessionRowID = 1

type sessionRow struct {
	ID        uint      `gorm:"primaryKey"`
	Record    string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (sessionRow) TableName() string {
	return "client_session"
}

// SQLiteBackend keeps the session record in a one-row SQLite table
type SQLiteBackend struct {
	db *gorm.DB
}

// OpenSQLiteBackend opens (creating if needed) the database at path
func OpenSQLiteBackend(path string) (*SQLiteBackend, error) {
	const busyTimeout = 5000 // 5 seconds

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout)).Error; err != nil {
		return nil, fmt.Errorf("failed to apply pragma: %w", err)
	}

	if err := db.AutoMigrate(&sessionRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Read() ([]byte, error) {
	var row sessionRow
	if err := b.db.First(&row, sessionRowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("failed to read session row: %w", err)
	}
	return []byte(row.Record), nil
}

func (b *SQLiteBackend) Write(data []byte) error {
	return b.db.Transaction(func(tx *gorm.DB) error {
		row := sessionRow{ID: sessionRowID, Record: string(data)}
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("failed to write session row: %w", err)
		}
		return nil
	})
}

func (b *SQLiteBackend) Delete() error {
	if err := b.db.Delete(&sessionRow{}, sessionRowID).Error; err != nil {
		return fmt.Errorf("failed to delete session row: %w", err)
	}
	return nil
}

// Close releases the underlying database handle
func (b *SQLiteBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
