// Package history records print jobs: one row per started print, updated as
// it pauses, completes, fails or is cancelled.
package history

import (
	"fmt"
	"time"
)

// JobState is the lifecycle state of a recorded job.
type JobState string

const (
	JobInProgress JobState = "in_progress"
	JobPaused     JobState = "paused"
	JobCompleted  JobState = "completed"
	JobError      JobState = "error"
	JobCancelled  JobState = "cancelled"
)

// Terminal reports whether the job has ended.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobError || s == JobCancelled
}

// Job is one recorded print.
type Job struct {
	ID        int64
	GUID      string
	Card      string
	Filename  string
	State     JobState
	Error     string
	Pauses    int
	Duration  time.Duration // time spent printing, pauses excluded
	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time
	UpdatedAt time.Time
}

// JobNotFoundError is returned when no job matches the lookup.
type JobNotFoundError struct {
	GUID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.GUID)
}

// ListFilter narrows List results.
type ListFilter struct {
	Card  string
	State JobState
	Limit int
}

// Repository persists jobs.
type Repository interface {
	// Save inserts a job with ID 0 and sets its ID, or updates an existing one.
	Save(job *Job) error
	// FindByGUID returns JobNotFoundError if no job matches.
	FindByGUID(guid string) (*Job, error)
	// List returns jobs newest first.
	List(filter ListFilter) ([]*Job, error)
	// DeleteAll removes every job for card.
	DeleteAll(card string) error
}
