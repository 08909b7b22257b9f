package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/vsdcard/internal/dispatch"
	"github.com/zjrosen/vsdcard/internal/log"
)

// Recorder turns a card's lifecycle notes into job rows. Storage errors are
// logged and never reach the print loop.
type Recorder struct {
	card string
	repo Repository
	now  func() time.Time

	mu       sync.Mutex
	filename string
	job      *Job
	resumed  time.Time // start of the current printing stretch
}

var _ dispatch.Stats = (*Recorder)(nil)

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder records jobs for card into repo.
func NewRecorder(card string, repo Repository, opts ...RecorderOption) *Recorder {
	r := &Recorder{card: card, repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Current returns a copy of the job being recorded, or nil.
func (r *Recorder) Current() *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.job == nil {
		return nil
	}
	cp := *r.job
	return &cp
}

func (r *Recorder) SetCurrentFile(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filename = name
}

// NoteStart opens a new job, or resumes the paused one.
func (r *Recorder) NoteStart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if r.job != nil && !r.job.State.Terminal() {
		r.accumulateLocked(now)
		r.resumed = now
		r.job.State = JobInProgress
		r.saveLocked(now)
		return
	}
	r.resumed = now
	r.job = &Job{
		GUID:      uuid.NewString(),
		Card:      r.card,
		Filename:  r.filename,
		State:     JobInProgress,
		CreatedAt: now,
		StartedAt: &now,
	}
	log.Info(log.CatHistory, "job started", "card", r.card, "job", r.job.GUID, "file", r.filename)
	r.saveLocked(now)
}

func (r *Recorder) NotePause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.job == nil || r.job.State != JobInProgress {
		return
	}
	now := r.now()
	r.accumulateLocked(now)
	r.job.State = JobPaused
	r.job.Pauses++
	r.saveLocked(now)
}

func (r *Recorder) NoteComplete() {
	r.finish(JobCompleted, "")
}

func (r *Recorder) NoteError(msg string) {
	r.finish(JobError, msg)
}

func (r *Recorder) NoteCancel() {
	r.finish(JobCancelled, "")
}

// Reset forgets the current file. An unfinished job is recorded as
// cancelled.
func (r *Recorder) Reset() {
	r.finish(JobCancelled, "")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filename = ""
	r.job = nil
}

func (r *Recorder) finish(state JobState, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.job == nil || r.job.State.Terminal() {
		return
	}
	now := r.now()
	if r.job.State == JobInProgress {
		r.accumulateLocked(now)
	}
	r.job.State = state
	r.job.Error = msg
	r.job.EndedAt = &now
	log.Info(log.CatHistory, "job ended", "card", r.card, "job", r.job.GUID, "state", state, "duration", r.job.Duration)
	r.saveLocked(now)
}

func (r *Recorder) accumulateLocked(now time.Time) {
	if !r.resumed.IsZero() {
		r.job.Duration += now.Sub(r.resumed)
		r.resumed = time.Time{}
	}
}

func (r *Recorder) saveLocked(now time.Time) {
	r.job.UpdatedAt = now
	if err := r.repo.Save(r.job); err != nil {
		log.ErrorErr(log.CatHistory, "save job", err, "card", r.card, "job", r.job.GUID)
	}
}
