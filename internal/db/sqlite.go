package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Sqlite is a database that stores runs in a sqlite database.
type Sqlite struct {
	URL string
	// Config
	BatchSize int

	store
}

// NewSqlite creates a new Sqlite database.
func NewSqlite(path string, batchSize int) (Database, error) {
	if path == "" {
		return nil, fmt.Errorf("'path' is required")
	}
	return &Sqlite{
		URL:       path,
		BatchSize: batchSize,
	}, nil
}

// Connect connects to the database.
func (s *Sqlite) Connect() (err error) {
	if s.URL != ":memory:" && !strings.HasPrefix(s.URL, "file:") {
		if err := os.MkdirAll(filepath.Dir(s.URL), 0o755); err != nil {
			return fmt.Errorf("failed to create sqlite database folder: %w", err)
		}
	}
	s.db, err = gorm.Open(sqlite.Open(s.URL), &gorm.Config{
		CreateBatchSize: s.BatchSize,
		TranslateError:  true,
		Logger:          logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect sqlite database: %w", err)
	}
	return s.migrate()
}
