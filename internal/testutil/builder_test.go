package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuilder_WithJob(t *testing.T) {
	db := NewTestDB(t)
	defer func() { _ = db.Close() }()

	NewBuilder(t, db).
		WithJob("job-1").
		Build()

	var guid, card, filename, state string
	var endedAt *int64
	err := db.QueryRow(`SELECT guid, card, filename, state, ended_at FROM jobs WHERE guid = ?`, "job-1").
		Scan(&guid, &card, &filename, &state, &endedAt)
	require.NoError(t, err)
	require.Equal(t, "sdcard", card)
	require.Equal(t, "job-1.gcode", filename) // default filename derives from guid
	require.Equal(t, "completed", state)
	require.NotNil(t, endedAt)
}

func TestBuilder_WithJob_AllOptions(t *testing.T) {
	db := NewTestDB(t)
	defer func() { _ = db.Close() }()

	created := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	NewBuilder(t, db).
		WithJob("job-1",
			Card("left"),
			Filename("part.gcode"),
			ErrorMessage("Move out of range"),
			Pauses(3),
			Duration(90*time.Second),
			CreatedAt(created),
		).
		Build()

	var card, filename, state string
	var msg *string
	var pauses int
	var durationMs, createdAt int64
	err := db.QueryRow(`SELECT card, filename, state, error_message, pauses, print_duration_ms, created_at FROM jobs`).
		Scan(&card, &filename, &state, &msg, &pauses, &durationMs, &createdAt)
	require.NoError(t, err)
	require.Equal(t, "left", card)
	require.Equal(t, "part.gcode", filename)
	require.Equal(t, "error", state)
	require.NotNil(t, msg)
	require.Equal(t, "Move out of range", *msg)
	require.Equal(t, 3, pauses)
	require.Equal(t, int64(90000), durationMs)
	require.Equal(t, created.UnixMilli(), createdAt)
}

func TestBuilder_UnfinishedStateClearsEndedAt(t *testing.T) {
	db := NewTestDB(t)
	defer func() { _ = db.Close() }()

	NewBuilder(t, db).WithJob("job-1", State("paused")).Build()

	var endedAt *int64
	require.NoError(t, db.QueryRow(`SELECT ended_at FROM jobs`).Scan(&endedAt))
	require.Nil(t, endedAt)
}

func TestBuilder_StandardTestData(t *testing.T) {
	db := NewTestDB(t)
	defer func() { _ = db.Close() }()

	NewBuilder(t, db).WithStandardTestData().Build()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM jobs`).Scan(&count))
	require.Equal(t, 4, count)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM jobs WHERE card = 'sdcard2'`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestCardBuilder_WritesFiles(t *testing.T) {
	c := NewCard(t).
		WithFile("job.gcode", Lines(ThreeLineJob...)).
		WithFile("sub/dir/part.g", Content("G28")).
		WithDir("empty")
	root := c.Build()

	data, err := os.ReadFile(c.Path("job.gcode"))
	require.NoError(t, err)
	require.Equal(t, "G28\nG1 X10\nG1 X20\n", string(data))

	data, err = os.ReadFile(c.Path("sub/dir/part.g"))
	require.NoError(t, err)
	require.Equal(t, "G28", string(data))

	info, err := os.Stat(c.Path("empty"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, root, c.Root())
}

func TestCardBuilder_RepeatAndModTime(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewCard(t).WithFile("big.gcode", Repeat("G1 X1", 3), ModTime(when))
	c.Build()

	data, err := os.ReadFile(c.Path("big.gcode"))
	require.NoError(t, err)
	require.Equal(t, "G1 X1\nG1 X1\nG1 X1\n", string(data))

	info, err := os.Stat(c.Path("big.gcode"))
	require.NoError(t, err)
	require.True(t, info.ModTime().Equal(when))
}

func TestCardBuilder_LaterFileReplacesEarlier(t *testing.T) {
	c := NewCard(t).
		WithFile("job.gcode", Content("old")).
		WithFile("job.gcode", Content("new"))
	c.Build()

	data, err := os.ReadFile(c.Path("job.gcode"))
	require.NoError(t, err)
	require.Equal(t, "new", string(data))
}
