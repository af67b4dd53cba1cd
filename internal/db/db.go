// Package db provides a database interface and implementations.
package db

import (
	"github.com/blacktop/dexsig/internal/config"
	"github.com/blacktop/dexsig/internal/model"
	"github.com/pkg/errors"
)

// Database is the interface that wraps the basic database operations.
type Database interface {
	// Connect connects to the database.
	Connect() error

	// Save creates or replaces a run and its matches.
	Save(run *model.Run) error

	// Get returns the run for the given ID.
	// It returns model.ErrNotFound if the run does not exist.
	Get(id string) (*model.Run, error)

	// List returns all runs, newest first.
	List() ([]*model.Run, error)

	// Delete removes the given run.
	// It returns model.ErrNotFound if the run does not exist.
	Delete(id string) error

	// Close closes the database.
	Close() error
}

// Open creates the database configured by c. It does not connect.
func Open(c config.Database) (Database, error) {
	switch c.Driver {
	case config.DriverMemory:
		return NewInMemory(c.Path)
	case config.DriverSqlite:
		return NewSqlite(c.Path, c.BatchSize)
	case config.DriverPostgres:
		return NewPostgres(c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	default:
		return nil, errors.Errorf("unsupported database driver: %q", c.Driver)
	}
}
