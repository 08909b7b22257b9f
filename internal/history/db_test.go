package history

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDB_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "history.db")

	db, err := NewDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	info, err := os.Stat(filepath.Dir(dbPath))
	require.NoError(t, err)
	require.True(t, info.IsDir())
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0700), info.Mode().Perm())
	}
}

func TestNewDB_RunsMigrations(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer db.Close()

	var name string
	err = db.conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='jobs'").Scan(&name)
	require.NoError(t, err, "jobs table should exist after migrations")
	require.Equal(t, "jobs", name)

	var version int
	require.NoError(t, db.conn.QueryRow("SELECT version FROM schema_migrations").Scan(&version))
	require.Equal(t, 1, version)
}

func TestNewDB_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	db1, err := NewDB(dbPath)
	require.NoError(t, err)
	job := &Job{GUID: "g-1", Card: "sdcard", Filename: "a.gcode", State: JobCompleted}
	require.NoError(t, db1.Jobs().Save(job))
	require.NoError(t, db1.Close())

	db2, err := NewDB(dbPath)
	require.NoError(t, err)
	defer db2.Close()

	got, err := db2.Jobs().FindByGUID("g-1")
	require.NoError(t, err)
	require.Equal(t, "a.gcode", got.Filename)

	info, err := os.Stat(dbPath + ".bak")
	require.NoError(t, err, "reopening should back up the existing file")
	require.Greater(t, info.Size(), int64(0))
}

func TestNewDB_Pragmas(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer db.Close()

	var journalMode string
	require.NoError(t, db.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	require.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, db.conn.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	require.Equal(t, 5000, busyTimeout)
}

func TestDB_Close(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)

	require.NoError(t, db.Close())
	require.Error(t, db.Connection().Ping(), "ping should fail after Close")
}

func TestNewDB_InvalidPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Unix-specific path test")
	}
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	_, err := NewDB(filepath.Join(blocker, "history.db"))
	require.Error(t, err, "a regular file cannot be a parent directory")
}
