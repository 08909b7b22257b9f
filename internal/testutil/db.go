// Package testutil provides fixtures for tests: card directories full of
// G-code files and seeded job history databases.
package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/require"
)

// Schema mirrors the jobs table created by the history migrations.
const Schema = `
CREATE TABLE jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guid TEXT NOT NULL UNIQUE,
	card TEXT NOT NULL,
	filename TEXT NOT NULL,
	state TEXT NOT NULL,
	error_message TEXT,
	pauses INTEGER NOT NULL DEFAULT 0,
	print_duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	started_at INTEGER,
	ended_at INTEGER,
	updated_at INTEGER NOT NULL
);
`

// NewTestDB creates an in-memory SQLite database with the jobs schema.
// The caller is responsible for closing the database.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Each pooled connection would get its own empty :memory: database.
	db.SetMaxOpenConns(1)
	_, err = db.Exec(Schema)
	require.NoError(t, err)
	return db
}
