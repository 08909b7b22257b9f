package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/vsdcard/internal/testutil"
)

// repositories runs fn against every Repository implementation.
func repositories(t *testing.T, fn func(t *testing.T, repo Repository)) {
	t.Run("sqlite", func(t *testing.T) {
		db, err := NewDB(filepath.Join(t.TempDir(), "history.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		fn(t, db.Jobs())
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryRepository())
	})
}

func TestRepository_SaveInsertsThenUpdates(t *testing.T) {
	repositories(t, func(t *testing.T, repo Repository) {
		start := time.UnixMilli(1_700_000_000_000)
		job := &Job{
			GUID:      "g-1",
			Card:      "sdcard",
			Filename:  "job.gcode",
			State:     JobInProgress,
			CreatedAt: start,
			StartedAt: &start,
			UpdatedAt: start,
		}
		require.NoError(t, repo.Save(job))
		require.NotZero(t, job.ID)
		id := job.ID

		end := start.Add(time.Minute)
		job.State = JobError
		job.Error = "Move out of range"
		job.Pauses = 2
		job.Duration = 45 * time.Second
		job.EndedAt = &end
		job.UpdatedAt = end
		require.NoError(t, repo.Save(job))
		require.Equal(t, id, job.ID)

		got, err := repo.FindByGUID("g-1")
		require.NoError(t, err)
		require.Equal(t, JobError, got.State)
		require.Equal(t, "Move out of range", got.Error)
		require.Equal(t, 2, got.Pauses)
		require.Equal(t, 45*time.Second, got.Duration)
		require.NotNil(t, got.EndedAt)
		require.True(t, got.EndedAt.Equal(end))
		require.True(t, got.StartedAt.Equal(start))
	})
}

func TestRepository_FindByGUIDNotFound(t *testing.T) {
	repositories(t, func(t *testing.T, repo Repository) {
		_, err := repo.FindByGUID("missing")
		var nf *JobNotFoundError
		require.ErrorAs(t, err, &nf)
		require.Equal(t, "missing", nf.GUID)
	})
}

func TestRepository_ListNewestFirstWithFilters(t *testing.T) {
	repositories(t, func(t *testing.T, repo Repository) {
		base := time.UnixMilli(1_700_000_000_000)
		for i, j := range []struct {
			card  string
			state JobState
		}{
			{"sdcard", JobCompleted},
			{"sdcard2", JobCancelled},
			{"sdcard", JobError},
			{"sdcard", JobCompleted},
		} {
			created := base.Add(time.Duration(i) * time.Minute)
			require.NoError(t, repo.Save(&Job{
				GUID: string(rune('a' + i)), Card: j.card, Filename: "f.gcode",
				State: j.state, CreatedAt: created, UpdatedAt: created,
			}))
		}

		all, err := repo.List(ListFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		require.Equal(t, "d", all[0].GUID)
		require.Equal(t, "a", all[3].GUID)

		card, err := repo.List(ListFilter{Card: "sdcard"})
		require.NoError(t, err)
		require.Len(t, card, 3)

		done, err := repo.List(ListFilter{Card: "sdcard", State: JobCompleted, Limit: 1})
		require.NoError(t, err)
		require.Len(t, done, 1)
		require.Equal(t, "d", done[0].GUID)
	})
}

func TestRepository_DeleteAll(t *testing.T) {
	repositories(t, func(t *testing.T, repo Repository) {
		now := time.Now()
		require.NoError(t, repo.Save(&Job{GUID: "a", Card: "sdcard", State: JobCompleted, CreatedAt: now, UpdatedAt: now}))
		require.NoError(t, repo.Save(&Job{GUID: "b", Card: "other", State: JobCompleted, CreatedAt: now, UpdatedAt: now}))

		require.NoError(t, repo.DeleteAll("sdcard"))

		jobs, err := repo.List(ListFilter{})
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		require.Equal(t, "b", jobs[0].GUID)
	})
}

func TestJobRepository_ReadsSeededRows(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer func() { _ = db.Close() }()
	testutil.NewBuilder(t, db).WithStandardTestData().Build()

	repo := newJobRepository(db)
	jobs, err := repo.List(ListFilter{Card: "sdcard"})
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	require.Equal(t, "job-4", jobs[0].GUID)
	require.Equal(t, JobInProgress, jobs[0].State)
	require.Nil(t, jobs[0].EndedAt)

	failed, err := repo.FindByGUID("job-2")
	require.NoError(t, err)
	require.Equal(t, JobError, failed.State)
	require.Equal(t, "Move out of range", failed.Error)
	require.Equal(t, 1, failed.Pauses)
}

func TestMemoryRepository_SaveUnknownID(t *testing.T) {
	repo := NewMemoryRepository()
	err := repo.Save(&Job{ID: 42, GUID: "ghost"})
	var nf *JobNotFoundError
	require.ErrorAs(t, err, &nf)
}
