package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/vsdcard/internal/watcher"
)

func TestWatcher_NotifiesOnCreate(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "part.gcode")

	w, err := watcher.New(watcher.Config{Path: target})
	require.NoError(t, err, "failed to create watcher")
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")

	require.NoError(t, os.WriteFile(target, []byte("G28\n"), 0644))

	select {
	case <-onChange:
	case <-time.After(time.Second):
		t.Fatal("expected notification for created file")
	}
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "part.gcode")
	require.NoError(t, os.WriteFile(target, []byte("test"), 0644), "failed to create test file")

	w, err := watcher.New(watcher.Config{
		Path:        target,
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err, "failed to create watcher")
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")

	// Rapid writes should coalesce into single notification
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(target, []byte(fmt.Sprintf("test%d", i)), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-onChange:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected notification but got timeout")
	}

	select {
	case <-onChange:
		t.Fatal("unexpected second notification")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "part.gcode")
	other := filepath.Join(dir, "other.gcode")
	require.NoError(t, os.WriteFile(other, []byte("initial"), 0644))

	w, err := watcher.New(watcher.Config{Path: target})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(other, []byte("other content"), 0644))

	select {
	case <-onChange:
		t.Fatal("should not notify for unrelated files")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w, err := watcher.New(watcher.Config{Path: filepath.Join(t.TempDir(), "missing", "part.gcode")})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	_, err = w.Start()
	require.Error(t, err)
}

func TestWatcher_Stop(t *testing.T) {
	w, err := watcher.New(watcher.DefaultConfig(filepath.Join(t.TempDir(), "part.gcode")))
	require.NoError(t, err)

	_, err = w.Start()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		assert.NoError(t, w.Stop(), "Stop returned error")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Stop() timed out - possible deadlock")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := watcher.DefaultConfig("/cache/part.gcode")
	assert.Equal(t, "/cache/part.gcode", cfg.Path)
	assert.Equal(t, 20*time.Millisecond, cfg.DebounceDur)
}
