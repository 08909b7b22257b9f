// Package filecache copies print files that live on removable media to local
// storage in the background, so a drive that disconnects mid-print does not
// abort it.
package filecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zjrosen/vsdcard/internal/cachemanager"
	"github.com/zjrosen/vsdcard/internal/log"
	"github.com/zjrosen/vsdcard/internal/metrics"
	"github.com/zjrosen/vsdcard/internal/watcher"
)

const (
	DefaultChunkSize   = 64 * 1024
	DefaultWaitTimeout = 10 * time.Second
	DefaultJoinTimeout = time.Second

	pollInterval = 100 * time.Millisecond
	removableTTL = time.Minute
)

// Config controls caching behaviour.
type Config struct {
	Enabled     bool
	Dir         string
	ChunkSize   int
	WaitTimeout time.Duration
	JoinTimeout time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithRemovableFunc replaces removable media detection.
func WithRemovableFunc(fn func(ctx context.Context, path string) (bool, error)) Option {
	return func(m *Manager) {
		m.detect = fn
	}
}

// WithoutDeviceMemo disables memoising detection results per device.
func WithoutDeviceMemo() Option {
	return func(m *Manager) {
		m.skipMemo = true
	}
}

// Manager owns at most one active cache Entry.
type Manager struct {
	cfg      Config
	detect   func(ctx context.Context, path string) (bool, error)
	skipMemo bool
	memo     *cachemanager.ReadThroughCache[string, bool, string]

	mu         sync.Mutex
	active     *Entry
	generation uint64
}

// New creates a Manager. Zero config values take package defaults.
func New(cfg Config, opts ...Option) *Manager {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = DefaultJoinTimeout
	}
	m := &Manager{cfg: cfg, detect: detectRemovable}
	for _, opt := range opts {
		opt(m)
	}
	m.memo = cachemanager.NewReadThroughCache[string, bool, string](
		cachemanager.NewInMemoryCacheManager[string, bool]("removable", removableTTL, 2*removableTTL),
		m.detect,
		m.skipMemo,
	)
	return m
}

// Enabled reports whether caching is configured on.
func (m *Manager) Enabled() bool {
	return m.cfg.Enabled
}

// WaitTimeout returns the configured wait for the first cached bytes.
func (m *Manager) WaitTimeout() time.Duration {
	return m.cfg.WaitTimeout
}

// ShouldCache reports whether path should be copied before printing: caching
// must be enabled and the file must sit on removable storage.
func (m *Manager) ShouldCache(ctx context.Context, path string) bool {
	if !m.cfg.Enabled {
		return false
	}
	key, err := deviceKey(path)
	if err != nil {
		// No device mapping: memoise per path instead.
		key = "path:" + path
	}
	removable, err := m.memo.Get(ctx, key, path, removableTTL)
	if err != nil {
		log.ErrorErr(log.CatCache, "removable media detection failed", err, "path", path)
		return false
	}
	log.Debug(log.CatCache, "media check", "path", path, "device", key, "removable", removable)
	return removable
}

// Active returns the current cache attempt, or nil.
func (m *Manager) Active() *Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Begin supersedes any active attempt, clears the cache directory and starts
// copying source in the background.
func (m *Manager) Begin(ctx context.Context, source string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		log.Debug(log.CatCache, "superseding copy", "generation", m.active.Generation, "source", m.active.SourcePath)
		m.active.cancel()
		m.active = nil
	}
	m.clearDir()

	if err := os.MkdirAll(m.cfg.Dir, 0755); err != nil {
		return nil, &CacheError{Op: "mkdir", Path: m.cfg.Dir, Err: err}
	}

	m.generation++
	copyCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	entry := newEntry(source, filepath.Join(m.cfg.Dir, filepath.Base(source)), m.generation, cancel)
	entry.setState(Copying)
	m.active = entry

	log.Info(log.CatCache, "starting copy", "source", source, "dest", entry.DestPath, "generation", entry.Generation)
	go m.copy(copyCtx, entry)
	return entry, nil
}

// copy streams the source into the destination in fixed-size chunks.
func (m *Manager) copy(ctx context.Context, e *Entry) {
	defer close(e.done)
	start := time.Now()

	err := m.copyFile(ctx, e)
	if err != nil {
		e.fail(err)
		if errors.Is(err, context.Canceled) {
			log.Debug(log.CatCache, "copy cancelled", "generation", e.Generation, "copied", e.Copied())
			metrics.ObserveCacheCopy("cancelled", e.Copied(), time.Since(start))
			return
		}
		log.ErrorErr(log.CatCache, "copy failed", err, "source", e.SourcePath, "copied", e.Copied())
		metrics.ObserveCacheCopy("failed", e.Copied(), time.Since(start))
		return
	}
	e.setState(Complete)
	log.Info(log.CatCache, "copy complete", "dest", e.DestPath, "bytes", e.Copied(), "elapsed", time.Since(start))
	metrics.ObserveCacheCopy("complete", e.Copied(), time.Since(start))
}

func (m *Manager) copyFile(ctx context.Context, e *Entry) error {
	src, err := os.Open(e.SourcePath)
	if err != nil {
		return &CacheError{Op: "open", Path: e.SourcePath, Err: err}
	}
	defer func() { _ = src.Close() }()

	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := os.OpenFile(e.DestPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return &CacheError{Op: "create", Path: e.DestPath, Err: err}
	}
	defer func() { _ = dst.Close() }()

	buf := make([]byte, m.cfg.ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return &CacheError{Op: "write", Path: e.DestPath, Err: werr}
			}
			e.advance(n)
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return &CacheError{Op: "read", Path: e.SourcePath, Err: rerr}
		}
	}
	if err := dst.Sync(); err != nil {
		return &CacheError{Op: "sync", Path: e.DestPath, Err: err}
	}
	return nil
}

// WaitForFirstBytes waits for the destination of e to exist and returns a
// handle reading it from offset 0. size is the expected final size. Returns
// ErrCacheTimeout after timeout (zero means the configured default).
func (m *Manager) WaitForFirstBytes(ctx context.Context, e *Entry, size int64, timeout time.Duration) (*Handle, error) {
	if timeout <= 0 {
		timeout = m.cfg.WaitTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var changes <-chan struct{}
	w, err := watcher.New(watcher.Config{Path: e.DestPath})
	if err == nil {
		if changes, err = w.Start(); err != nil {
			log.ErrorErr(log.CatCache, "watch cache dir, polling instead", err, "dir", m.cfg.Dir)
		}
		defer func() { _ = w.Stop() }()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if f, err := os.Open(e.DestPath); err == nil {
			return newHandle(e, f, size), nil
		}
		if e.State() == Failed {
			return nil, &CacheError{Op: "wait", Path: e.DestPath, Err: e.Err()}
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrCacheTimeout
			}
			return nil, ctx.Err()
		case <-changes:
		case <-ticker.C:
		}
	}
}

// Cleanup stops the active copy, waits a bounded time for it to exit and
// optionally deletes cached files. Safe to call with no active cache.
func (m *Manager) Cleanup(removeFiles bool) {
	m.mu.Lock()
	entry := m.active
	m.active = nil
	m.mu.Unlock()

	if entry != nil {
		entry.cancel()
		select {
		case <-entry.done:
		case <-time.After(m.cfg.JoinTimeout):
			log.Warn(log.CatCache, "copy did not stop in time", "generation", entry.Generation)
		}
	}
	if removeFiles {
		m.mu.Lock()
		m.clearDir()
		m.mu.Unlock()
	}
}

// clearDir removes every file in the cache directory. Caller holds m.mu.
func (m *Manager) clearDir() {
	if m.cfg.Dir == "" {
		return
	}
	matches, err := filepath.Glob(filepath.Join(m.cfg.Dir, "*"))
	if err != nil {
		log.ErrorErr(log.CatCache, "glob cache dir", err, "dir", m.cfg.Dir)
		return
	}
	for _, p := range matches {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.ErrorErr(log.CatCache, "remove cached file", err, "path", p)
		}
	}
}

// String describes the active entry for status output.
func (m *Manager) String() string {
	e := m.Active()
	if e == nil {
		return "cache idle"
	}
	return fmt.Sprintf("cache %s %d bytes (gen %d)", e.State(), e.Copied(), e.Generation)
}
