package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Builder accumulates job rows and inserts them in order.
type Builder struct {
	t    *testing.T
	db   *sql.DB
	jobs []jobData
}

// NewBuilder creates a builder for the given database.
func NewBuilder(t *testing.T, db *sql.DB) *Builder {
	t.Helper()
	return &Builder{t: t, db: db}
}

// WithJob adds a job with optional configuration.
func (b *Builder) WithJob(guid string, opts ...JobOption) *Builder {
	job := defaultJob(guid)
	for _, opt := range opts {
		opt(&job)
	}
	b.jobs = append(b.jobs, job)
	return b
}

// Build inserts all accumulated jobs.
func (b *Builder) Build() {
	b.t.Helper()
	for _, j := range b.jobs {
		_, err := b.db.Exec(
			`INSERT INTO jobs (guid, card, filename, state, error_message, pauses, print_duration_ms, created_at, started_at, ended_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			j.guid, j.card, j.filename, j.state, j.errMessage, j.pauses, j.durationMs,
			j.createdAt.UnixMilli(), millis(j.startedAt), millis(j.endedAt), j.createdAt.UnixMilli(),
		)
		require.NoError(b.t, err)
	}
}

func millis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

// CardBuilder lays out a card directory of G-code files.
type CardBuilder struct {
	t     *testing.T
	root  string
	files map[string]fileData
	dirs  []string
	order []string
}

// NewCard creates a builder rooted at a fresh temporary directory.
func NewCard(t *testing.T) *CardBuilder {
	t.Helper()
	return &CardBuilder{t: t, root: t.TempDir(), files: make(map[string]fileData)}
}

// WithFile adds a file at the slash-separated relative path name.
func (c *CardBuilder) WithFile(name string, opts ...FileOption) *CardBuilder {
	var f fileData
	for _, opt := range opts {
		opt(&f)
	}
	if _, ok := c.files[name]; !ok {
		c.order = append(c.order, name)
	}
	c.files[name] = f
	return c
}

// WithDir adds an empty directory.
func (c *CardBuilder) WithDir(name string) *CardBuilder {
	c.dirs = append(c.dirs, name)
	return c
}

// Build writes everything and returns the card root.
func (c *CardBuilder) Build() string {
	c.t.Helper()
	for _, d := range c.dirs {
		require.NoError(c.t, os.MkdirAll(c.Path(d), 0755))
	}
	for _, name := range c.order {
		f := c.files[name]
		p := c.Path(name)
		require.NoError(c.t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(c.t, os.WriteFile(p, []byte(f.content), 0644))
		if !f.modTime.IsZero() {
			require.NoError(c.t, os.Chtimes(p, f.modTime, f.modTime))
		}
	}
	return c.root
}

// Root returns the card directory.
func (c *CardBuilder) Root() string {
	return c.root
}

// Path returns the absolute path of a file on the card.
func (c *CardBuilder) Path(name string) string {
	return filepath.Join(c.root, filepath.FromSlash(name))
}
