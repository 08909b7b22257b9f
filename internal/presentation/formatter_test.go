package presentation

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/vsdcard/internal/catalog"
	"github.com/zjrosen/vsdcard/internal/dispatch"
	"github.com/zjrosen/vsdcard/internal/history"
)

func TestFormatFiles_Text(t *testing.T) {
	var buf bytes.Buffer
	mod := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	files := FromEntries([]catalog.Entry{
		{Path: "job.gcode", Size: 18, ModTime: mod},
		{Path: "parts/bracket.g", Size: 11, ModTime: mod},
	})

	require.NoError(t, NewFormatter(&buf, false).FormatFiles(files))
	assert.Equal(t, "job.gcode        18  2026-01-02 03:04:05\n"+
		"parts/bracket.g  11  2026-01-02 03:04:05\n", buf.String())
}

func TestFormatFiles_JSON(t *testing.T) {
	var buf bytes.Buffer
	files := FromEntries([]catalog.Entry{{Path: "job.gcode", Size: 18}})

	require.NoError(t, NewFormatter(&buf, true).FormatFiles(files))
	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "job.gcode", got[0]["path"])
	assert.EqualValues(t, 18, got[0]["size"])
}

func TestFormatJobs(t *testing.T) {
	ended := time.Date(2026, 1, 2, 4, 0, 0, 0, time.UTC)
	jobs := FromJobs([]*history.Job{{
		GUID:      "abc",
		Card:      "sdcard",
		Filename:  "job.gcode",
		State:     history.JobError,
		Error:     "Move out of range",
		Pauses:    2,
		Duration:  90 * time.Second,
		CreatedAt: time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC),
		EndedAt:   &ended,
	}})

	var text bytes.Buffer
	require.NoError(t, NewFormatter(&text, false).FormatJobs(jobs))
	assert.Contains(t, text.String(), "CREATED")
	assert.Contains(t, text.String(), "job.gcode")
	assert.Contains(t, text.String(), "1m30s")
	assert.Contains(t, text.String(), "Move out of range")

	var js bytes.Buffer
	require.NoError(t, NewFormatter(&js, true).FormatJobs(jobs))
	var got []JobDTO
	require.NoError(t, json.Unmarshal(js.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0].ID)
	assert.Equal(t, "error", got[0].State)
	assert.InDelta(t, 90, got[0].Duration, 0.001)
}

func TestFormatStatus(t *testing.T) {
	st := FromStatus(dispatch.Status{
		Card: "sdcard", FilePath: "/cards/job.gcode", State: dispatch.Paused,
		Line: 1, Position: 4, Size: 18, Progress: 4.0 / 18,
	})

	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, false).FormatStatus(st))
	assert.Equal(t, "sdcard: paused /cards/job.gcode line 1 byte 4/18 (22.2%)\n", buf.String())

	buf.Reset()
	require.NoError(t, NewFormatter(&buf, true).FormatStatus(st))
	assert.Contains(t, buf.String(), `"state": "paused"`)
}
