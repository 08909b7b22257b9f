package history

import "time"

// JobModel represents a row of the jobs table. Times are Unix milliseconds.
type JobModel struct {
	ID              int64
	GUID            string
	Card            string
	Filename        string
	State           string
	ErrorMessage    *string // nullable
	Pauses          int
	PrintDurationMs int64
	CreatedAt       int64
	StartedAt       *int64 // nullable
	EndedAt         *int64 // nullable
	UpdatedAt       int64
}

func toJobModel(j *Job) *JobModel {
	m := &JobModel{
		ID:              j.ID,
		GUID:            j.GUID,
		Card:            j.Card,
		Filename:        j.Filename,
		State:           string(j.State),
		Pauses:          j.Pauses,
		PrintDurationMs: j.Duration.Milliseconds(),
		CreatedAt:       j.CreatedAt.UnixMilli(),
		UpdatedAt:       j.UpdatedAt.UnixMilli(),
	}
	if j.Error != "" {
		msg := j.Error
		m.ErrorMessage = &msg
	}
	m.StartedAt = unixPtr(j.StartedAt)
	m.EndedAt = unixPtr(j.EndedAt)
	return m
}

func (m *JobModel) toJob() *Job {
	j := &Job{
		ID:        m.ID,
		GUID:      m.GUID,
		Card:      m.Card,
		Filename:  m.Filename,
		State:     JobState(m.State),
		Pauses:    m.Pauses,
		Duration:  time.Duration(m.PrintDurationMs) * time.Millisecond,
		CreatedAt: time.UnixMilli(m.CreatedAt),
		StartedAt: timePtr(m.StartedAt),
		EndedAt:   timePtr(m.EndedAt),
		UpdatedAt: time.UnixMilli(m.UpdatedAt),
	}
	if m.ErrorMessage != nil {
		j.Error = *m.ErrorMessage
	}
	return j
}

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.UnixMilli()
	return &v
}

func timePtr(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := time.UnixMilli(*v)
	return &t
}
