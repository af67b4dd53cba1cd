package db

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/blacktop/dexsig/internal/model"
	"github.com/pkg/errors"
)

// Memory is a database that stores runs in memory and persists them to a
// gob file on Close.
type Memory struct {
	Runs map[string]*model.Run
	Path string
}

// NewInMemory creates a new in-memory database.
func NewInMemory(path string) (Database, error) {
	if path == "" {
		return nil, errors.New("'path' is required")
	}
	return &Memory{
		Runs: make(map[string]*model.Run),
		Path: path,
	}, nil
}

// Connect loads the database file if it exists.
func (m *Memory) Connect() error {
	f, err := os.Open(m.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Wrap(err, "failed to open database file")
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(&m.Runs); err != nil {
		return errors.Wrapf(err, "failed to decode %s", m.Path)
	}
	return nil
}

// Save creates or replaces a run.
func (m *Memory) Save(run *model.Run) error {
	if run.ID == "" {
		return errors.New("run has no ID")
	}
	m.Runs[run.ID] = run
	return nil
}

// Get returns the run for the given ID.
func (m *Memory) Get(id string) (*model.Run, error) {
	run, exists := m.Runs[id]
	if !exists {
		return nil, errors.Wrapf(model.ErrNotFound, "id %s", id)
	}
	return run, nil
}

// List returns all runs, newest first.
func (m *Memory) List() ([]*model.Run, error) {
	runs := make([]*model.Run, 0, len(m.Runs))
	for _, r := range m.Runs {
		runs = append(runs, r)
	}
	slices.SortFunc(runs, func(a, b *model.Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return runs, nil
}

// Delete removes the given run.
func (m *Memory) Delete(id string) error {
	if _, exists := m.Runs[id]; !exists {
		return errors.Wrapf(model.ErrNotFound, "id %s", id)
	}
	delete(m.Runs, id)
	return nil
}

// Close writes the database file.
func (m *Memory) Close() error {
	if err := os.MkdirAll(filepath.Dir(m.Path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create database folder")
	}
	f, err := os.Create(m.Path)
	if err != nil {
		return errors.Wrap(err, "failed to create database file")
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(m.Runs)
}
