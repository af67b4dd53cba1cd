package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/blacktop/dexsig/internal/config"
	"github.com/blacktop/dexsig/internal/model"
	"github.com/blacktop/dexsig/pkg/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun(created time.Time, matches ...model.Match) *model.Run {
	run := model.NewRun("classes.json", "com.example.app", "18.04.37", resolver.PolicyLastMatch)
	run.CreatedAt = created
	run.Signatures = 3
	run.Classes = 120
	run.Matches = matches
	return run
}

func exercise(t *testing.T, open func() Database) {
	t.Helper()

	d := open()
	require.NoError(t, d.Connect())

	older := testRun(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		model.Match{Signature: "a", Class: "LFoo;", Method: "LFoo;->a()V", EndIndex: 3},
		model.Match{Signature: "b", Class: "LFoo;", Method: "LFoo;->b()V", Warnings: 1, Details: "insn 1: found nop, pattern[1] wants return"},
	)
	newer := testRun(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, d.Save(older))
	require.NoError(t, d.Save(newer))

	got, err := d.Get(older.ID)
	require.NoError(t, err)
	assert.Equal(t, "com.example.app", got.Target)
	assert.Equal(t, "last-match", got.Policy)
	require.Len(t, got.Matches, 2)
	assert.Equal(t, "LFoo;->a()V", got.Matches[0].Method)
	assert.Equal(t, 3, got.Matches[0].EndIndex)
	assert.Equal(t, 1, got.Matches[1].Warnings)

	// saving again replaces the matches
	older.Matches = older.Matches[:1]
	require.NoError(t, d.Save(older))
	got, err = d.Get(older.ID)
	require.NoError(t, err)
	assert.Len(t, got.Matches, 1)

	runs, err := d.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)

	require.NoError(t, d.Delete(newer.ID))
	_, err = d.Get(newer.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.True(t, errors.Is(d.Delete(newer.ID), model.ErrNotFound))

	require.NoError(t, d.Close())

	// reopen
	d = open()
	require.NoError(t, d.Connect())
	defer d.Close()
	runs, err = d.List()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, older.ID, runs[0].ID)
}

func TestMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.gob")
	exercise(t, func() Database {
		d, err := NewInMemory(path)
		require.NoError(t, err)
		return d
	})
}

func TestSqlite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	exercise(t, func() Database {
		d, err := NewSqlite(path, 100)
		require.NoError(t, err)
		return d
	})
}

func TestMissingFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "config", "dexsig")

	d, err := NewSqlite(filepath.Join(dir, "dexsig.db"), 100)
	require.NoError(t, err)
	require.NoError(t, d.Connect())
	require.NoError(t, d.Save(testRun(time.Now())))
	require.NoError(t, d.Close())

	d, err = NewInMemory(filepath.Join(dir, "gob", "dexsig.gob"))
	require.NoError(t, err)
	require.NoError(t, d.Connect())
	require.NoError(t, d.Save(testRun(time.Now())))
	require.NoError(t, d.Close())
	assert.FileExists(t, filepath.Join(dir, "gob", "dexsig.gob"))
}

func TestOpen(t *testing.T) {
	d, err := Open(config.Database{Driver: config.DriverMemory, Path: "x.gob"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, d)

	d, err = Open(config.Database{Driver: config.DriverSqlite, Path: "x.db"})
	require.NoError(t, err)
	assert.IsType(t, &Sqlite{}, d)

	d, err = Open(config.Database{Driver: config.DriverPostgres, Host: "localhost", Port: "5432", User: "u", Name: "runs"})
	require.NoError(t, err)
	pg, ok := d.(*Postgres)
	require.True(t, ok)
	assert.Equal(t, "host=localhost port=5432 user=u dbname=runs password= sslmode=disable", pg.dsn())

	_, err = Open(config.Database{Driver: config.DriverSqlite})
	assert.Error(t, err)
	_, err = Open(config.Database{Driver: "mysql"})
	assert.Error(t, err)
}
