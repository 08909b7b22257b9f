// Package presentation renders catalog listings, job history and card status
// for the command line, as JSON or as aligned text.
package presentation

import (
	"time"

	"github.com/zjrosen/vsdcard/internal/catalog"
	"github.com/zjrosen/vsdcard/internal/dispatch"
	"github.com/zjrosen/vsdcard/internal/history"
)

// FileDTO is one listed card file.
type FileDTO struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
}

// JobDTO is one recorded print job.
type JobDTO struct {
	ID        string     `json:"id"`
	Card      string     `json:"card"`
	Filename  string     `json:"filename"`
	State     string     `json:"state"`
	Error     string     `json:"error,omitempty"`
	Pauses    int        `json:"pauses"`
	Duration  float64    `json:"print_duration_seconds"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// StatusDTO is a card status snapshot.
type StatusDTO struct {
	Card     string  `json:"card"`
	State    string  `json:"state"`
	File     string  `json:"file_path,omitempty"`
	Line     int64   `json:"file_line"`
	Position int64   `json:"file_position"`
	Size     int64   `json:"file_size"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

// FromEntries converts catalog entries.
func FromEntries(entries []catalog.Entry) []FileDTO {
	out := make([]FileDTO, len(entries))
	for i, e := range entries {
		out[i] = FileDTO{Path: e.Path, Size: e.Size, ModTime: e.ModTime}
	}
	return out
}

// FromJobs converts history jobs.
func FromJobs(jobs []*history.Job) []JobDTO {
	out := make([]JobDTO, len(jobs))
	for i, j := range jobs {
		out[i] = JobDTO{
			ID:        j.GUID,
			Card:      j.Card,
			Filename:  j.Filename,
			State:     string(j.State),
			Error:     j.Error,
			Pauses:    j.Pauses,
			Duration:  j.Duration.Seconds(),
			CreatedAt: j.CreatedAt,
			EndedAt:   j.EndedAt,
		}
	}
	return out
}

// FromStatus converts a dispatcher status.
func FromStatus(st dispatch.Status) StatusDTO {
	return StatusDTO{
		Card:     st.Card,
		State:    st.StateName(),
		File:     st.FilePath,
		Line:     st.Line,
		Position: st.Position,
		Size:     st.Size,
		Progress: st.Progress,
		Error:    st.Error,
	}
}
