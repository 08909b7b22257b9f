package testutil

import "time"

// jobData holds all data for a job row to be inserted.
type jobData struct {
	guid       string
	card       string
	filename   string
	state      string
	errMessage *string
	pauses     int
	durationMs int64
	createdAt  time.Time
	startedAt  *time.Time
	endedAt    *time.Time
}

// defaultJob returns a jobData with sensible defaults.
func defaultJob(guid string) jobData {
	now := time.Now()
	return jobData{
		guid:      guid,
		card:      "sdcard",
		filename:  guid + ".gcode",
		state:     "completed",
		createdAt: now,
		startedAt: &now,
		endedAt:   &now,
	}
}

// JobOption configures a job during builder setup.
type JobOption func(*jobData)

// Card sets the owning card name.
func Card(name string) JobOption {
	return func(j *jobData) { j.card = name }
}

// Filename sets the printed file name.
func Filename(name string) JobOption {
	return func(j *jobData) { j.filename = name }
}

// State sets the job state. Unfinished states clear ended_at.
func State(state string) JobOption {
	return func(j *jobData) {
		j.state = state
		if state == "in_progress" || state == "paused" {
			j.endedAt = nil
		}
	}
}

// ErrorMessage sets the failure reason and marks the job as failed.
func ErrorMessage(msg string) JobOption {
	return func(j *jobData) {
		j.state = "error"
		j.errMessage = &msg
	}
}

// Pauses sets the pause count.
func Pauses(n int) JobOption {
	return func(j *jobData) { j.pauses = n }
}

// Duration sets the recorded print time.
func Duration(d time.Duration) JobOption {
	return func(j *jobData) { j.durationMs = d.Milliseconds() }
}

// CreatedAt sets created_at and started_at.
func CreatedAt(t time.Time) JobOption {
	return func(j *jobData) {
		j.createdAt = t
		j.startedAt = &t
	}
}

// FileOption configures a G-code file written by CardBuilder.
type FileOption func(*fileData)

type fileData struct {
	content string
	modTime time.Time
}

// Lines sets the file body to lines, each terminated by '\n'.
func Lines(lines ...string) FileOption {
	return func(f *fileData) {
		f.content = ""
		for _, l := range lines {
			f.content += l + "\n"
		}
	}
}

// Content sets the raw file body.
func Content(s string) FileOption {
	return func(f *fileData) { f.content = s }
}

// Repeat sets the body to line repeated n times.
func Repeat(line string, n int) FileOption {
	return func(f *fileData) {
		b := make([]byte, 0, (len(line)+1)*n)
		for range n {
			b = append(b, line...)
			b = append(b, '\n')
		}
		f.content = string(b)
	}
}

// ModTime sets the file modification time.
func ModTime(t time.Time) FileOption {
	return func(f *fileData) { f.modTime = t }
}
