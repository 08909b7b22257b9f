package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// fakeClock advances only when told to.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestRecorder(t *testing.T) (*Recorder, *MemoryRepository, *fakeClock) {
	t.Helper()
	repo := NewMemoryRepository()
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	return NewRecorder("sdcard", repo, WithClock(clock.Now)), repo, clock
}

func TestRecorder_CompleteJob(t *testing.T) {
	r, repo, clock := newTestRecorder(t)

	r.SetCurrentFile("job.gcode")
	r.NoteStart()
	clock.Advance(10 * time.Second)
	r.NoteComplete()

	jobs, err := repo.List(ListFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	job := jobs[0]
	require.Equal(t, JobCompleted, job.State)
	require.Equal(t, "job.gcode", job.Filename)
	require.Equal(t, "sdcard", job.Card)
	require.Equal(t, 10*time.Second, job.Duration)
	require.NotEmpty(t, job.GUID)
	require.NotNil(t, job.EndedAt)
}

func TestRecorder_PauseExcludedFromDuration(t *testing.T) {
	r, repo, clock := newTestRecorder(t)

	r.SetCurrentFile("job.gcode")
	r.NoteStart()
	clock.Advance(5 * time.Second)
	r.NotePause()
	clock.Advance(time.Hour)
	r.NoteStart()
	clock.Advance(3 * time.Second)
	r.NoteError("Move out of range")

	jobs, err := repo.List(ListFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1, "resuming continues the same job")
	require.Equal(t, JobError, jobs[0].State)
	require.Equal(t, "Move out of range", jobs[0].Error)
	require.Equal(t, 1, jobs[0].Pauses)
	require.Equal(t, 8*time.Second, jobs[0].Duration)
}

func TestRecorder_ResetCancelsUnfinishedJob(t *testing.T) {
	r, repo, _ := newTestRecorder(t)

	r.SetCurrentFile("job.gcode")
	r.NoteStart()
	r.NotePause()
	r.Reset()

	require.Nil(t, r.Current())
	jobs, err := repo.List(ListFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, JobCancelled, jobs[0].State)
}

func TestRecorder_NewJobAfterTerminal(t *testing.T) {
	r, repo, _ := newTestRecorder(t)

	r.SetCurrentFile("a.gcode")
	r.NoteStart()
	r.NoteCancel()
	r.SetCurrentFile("b.gcode")
	r.NoteStart()

	jobs, err := repo.List(ListFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.Equal(t, "b.gcode", jobs[0].Filename)
	require.Equal(t, JobInProgress, jobs[0].State)
	require.NotEqual(t, jobs[0].GUID, jobs[1].GUID)
}

func TestRecorder_NotesWithoutJobAreIgnored(t *testing.T) {
	r, repo, _ := newTestRecorder(t)

	r.NotePause()
	r.NoteComplete()
	r.NoteError("x")
	r.NoteCancel()
	r.Reset()

	jobs, err := repo.List(ListFilter{})
	require.NoError(t, err)
	require.Empty(t, jobs)
}

func TestRecorder_DurationNeverExceedsWallTime(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		repo := NewMemoryRepository()
		clock := &fakeClock{now: time.UnixMilli(0)}
		r := NewRecorder("sdcard", repo, WithClock(clock.Now))
		r.SetCurrentFile("job.gcode")
		r.NoteStart()
		start := clock.now

		steps := rapid.SliceOfN(rapid.IntRange(0, 3), 1, 30).Draw(t, "steps")
		for _, s := range steps {
			clock.Advance(time.Duration(rapid.IntRange(0, 1000).Draw(t, "ms")) * time.Millisecond)
			switch s {
			case 0:
				r.NotePause()
			case 1:
				r.NoteStart()
			default:
				// idle tick
			}
		}
		r.NoteComplete()

		job := r.Current()
		if job.Duration < 0 || job.Duration > clock.now.Sub(start) {
			t.Fatalf("duration %v outside [0, %v]", job.Duration, clock.now.Sub(start))
		}
		if job.State != JobCompleted {
			t.Fatalf("state %s, want completed", job.State)
		}
	})
}
