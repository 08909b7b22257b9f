// Package dispatch streams a selected file through the command executor one
// line at a time and owns the run state machine around it: select, start,
// pause, resume, cancel and the error path.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/vsdcard/internal/catalog"
	"github.com/zjrosen/vsdcard/internal/executor"
	"github.com/zjrosen/vsdcard/internal/filecache"
	"github.com/zjrosen/vsdcard/internal/log"
	"github.com/zjrosen/vsdcard/internal/metrics"
	"github.com/zjrosen/vsdcard/internal/pause"
	"github.com/zjrosen/vsdcard/internal/pubsub"
	"github.com/zjrosen/vsdcard/internal/session"
	"github.com/zjrosen/vsdcard/internal/tracing"
)

const (
	DefaultName         = "sdcard"
	DefaultPauseTimeout = 30 * time.Second
	DefaultGateRetry    = 100 * time.Millisecond
	DefaultReadSize     = 8 * 1024

	shutdownBefore = 1024
	shutdownAfter  = 128
)

// Executor is the shared command executor. Every file line runs with the
// gate held, acquired without blocking.
type Executor interface {
	TryLock() bool
	Unlock()
	RunLocked(ctx context.Context, script string) error
	Respond(msg string)
}

var _ Executor = (*executor.Executor)(nil)

// Config tunes one virtual card.
type Config struct {
	Name         string
	PauseTimeout time.Duration
	GateRetry    time.Duration
	// CacheWait bounds the wait for the first cached bytes. Zero uses the
	// cache manager's default.
	CacheWait time.Duration
	ReadSize  int
	// OnError runs after a file line fails. Nil disables recovery.
	OnError *executor.Script
}

// RecoveryData is the template data for the recovery script.
type RecoveryData struct {
	Reason string
	File   string
	Line   int64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithCache enables removable media caching.
func WithCache(m *filecache.Manager) Option {
	return func(d *Dispatcher) {
		d.cache = m
	}
}

// WithStats sets the print statistics sink.
func WithStats(s Stats) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.stats = s
		}
	}
}

// WithTracer records spans for runs and pauses.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracer = t
		}
	}
}

// Dispatcher drives one virtual card.
type Dispatcher struct {
	cfg     Config
	catalog *catalog.Catalog
	exec    Executor
	pauser  *pause.Controller
	cache   *filecache.Manager
	stats   Stats
	tracer  trace.Tracer
	events  *pubsub.Broker[StateChange]

	mu       sync.Mutex
	state    RunState
	sess     *session.Session
	name     string // as requested by the operator
	path     string // resolved source path
	reason   string
	nextPos  int64 // jump target set by a running line, -1 when none
	snapshot *pause.Snapshot
	done     chan struct{}
	pauseAt  time.Time

	pauseReq atomic.Bool
}

// New creates a Dispatcher in Idle with no file loaded.
func New(cfg Config, cat *catalog.Catalog, exec Executor, pauser *pause.Controller, opts ...Option) *Dispatcher {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.PauseTimeout <= 0 {
		cfg.PauseTimeout = DefaultPauseTimeout
	}
	if cfg.GateRetry <= 0 {
		cfg.GateRetry = DefaultGateRetry
	}
	if cfg.ReadSize <= 0 {
		cfg.ReadSize = DefaultReadSize
	}
	d := &Dispatcher{
		cfg:     cfg,
		catalog: cat,
		exec:    exec,
		pauser:  pauser,
		stats:   NopStats{},
		tracer:  tracing.Noop(),
		events:  pubsub.NewBroker[StateChange](),
		nextPos: -1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the card name.
func (d *Dispatcher) Name() string {
	return d.cfg.Name
}

// Catalog returns the card's file catalog.
func (d *Dispatcher) Catalog() *catalog.Catalog {
	return d.catalog
}

// Subscribe streams state transitions until ctx is done.
func (d *Dispatcher) Subscribe(ctx context.Context) <-chan pubsub.Event[StateChange] {
	return d.events.Subscribe(ctx)
}

// FromFile reports whether ctx belongs to a line the loop is running.
func FromFile(ctx context.Context) bool {
	return executor.FromFile(ctx)
}

// Select loads name from the top level of the card. A name that resolves
// to nothing leaves the current state untouched.
func (d *Dispatcher) Select(ctx context.Context, name string) (int64, error) {
	return d.load(ctx, name, false)
}

// PrintFile loads name, searching subdirectories, and starts printing.
func (d *Dispatcher) PrintFile(ctx context.Context, name string) (int64, error) {
	size, err := d.load(ctx, name, true)
	if err != nil {
		return 0, err
	}
	return size, d.Start(ctx)
}

func (d *Dispatcher) load(ctx context.Context, name string, recursive bool) (int64, error) {
	d.mu.Lock()
	busy := d.state.Active()
	d.mu.Unlock()
	if busy {
		return 0, ErrBusy
	}

	path, err := d.catalog.Resolve(name, recursive)
	if err != nil {
		log.Debug(log.CatDispatch, "select failed", "card", d.cfg.Name, "name", name, "error", err)
		return 0, err
	}

	d.mu.Lock()
	if d.state.Active() {
		d.mu.Unlock()
		return 0, ErrBusy
	}
	d.resetLocked()
	d.mu.Unlock()
	d.cleanupCache()

	sess, err := session.Open(path)
	if err != nil {
		log.ErrorErr(log.CatDispatch, "open selected file", err, "path", path)
		return 0, err
	}
	d.exec.Respond(fmt.Sprintf("File opened:%s Size:%d", name, sess.Size()))
	d.exec.Respond("File selected")
	d.stats.SetCurrentFile(name)

	d.applyCache(ctx, sess)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Active() {
		_ = sess.Close()
		return 0, ErrBusy
	}
	if d.sess != nil {
		// A concurrent select got here first.
		d.closeSessionLocked()
	}
	d.sess = sess
	d.name = name
	d.path = path
	log.Info(log.CatDispatch, "file selected", "card", d.cfg.Name, "path", path, "size", sess.Size())
	return sess.Size(), nil
}

// applyCache redirects sess to a local copy when the source sits on
// removable media. Every failure falls back to reading the source.
func (d *Dispatcher) applyCache(ctx context.Context, sess *session.Session) {
	if d.cache == nil || !d.cache.ShouldCache(ctx, sess.Path()) {
		return
	}
	entry, err := d.cache.Begin(ctx, sess.Path())
	if err != nil {
		log.ErrorErr(log.CatCache, "start cache copy", err, "path", sess.Path())
		d.exec.Respond("Cache failed, ensure USB connection is stable")
		return
	}
	h, err := d.cache.WaitForFirstBytes(ctx, entry, sess.Size(), d.cfg.CacheWait)
	if err != nil {
		log.ErrorErr(log.CatCache, "cache file creation failed, reading source", err, "path", sess.Path())
		d.cache.Cleanup(true)
		d.exec.Respond("Cache file creation failed")
		return
	}
	if err := sess.Redirect(h); err != nil {
		log.ErrorErr(log.CatCache, "redirect to cache", err, "path", sess.Path())
		_ = h.Close()
		d.cache.Cleanup(true)
		d.exec.Respond("Cache failed, ensure USB connection is stable")
		return
	}
	log.Info(log.CatCache, "printing from cache", "source", sess.Path(), "dest", entry.DestPath)
}

// Start begins printing the loaded file, or resumes a paused one, from the
// recorded position.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.Active() {
		return ErrBusy
	}
	if d.sess == nil || d.sess.Closed() {
		return ErrNoFile
	}
	if d.state != Idle && d.state != Paused {
		return fmt.Errorf("start from %s: %w", d.state, ErrInvalidState)
	}
	if err := d.sess.SeekTo(d.sess.Position()); err != nil {
		log.ErrorErr(log.CatDispatch, "seek before start", err, "position", d.sess.Position())
		d.failLocked(err.Error())
		return err
	}

	d.pauseReq.Store(false)
	d.nextPos = -1
	d.snapshot = nil
	done := make(chan struct{})
	d.done = done
	d.setStateLocked(Printing, "")

	go d.run(context.WithoutCancel(ctx), done)
	return nil
}

// Pause asks the loop to stop before its next line and waits until the
// quick stop has settled. From inside a file line it only raises the flag.
func (d *Dispatcher) Pause(ctx context.Context) error {
	d.mu.Lock()
	switch d.state {
	case Printing:
		d.pauseReq.Store(true)
		d.pauseAt = time.Now()
		d.setStateLocked(PausePending, "")
	case PausePending:
	default:
		d.mu.Unlock()
		return nil
	}
	done := d.done
	d.mu.Unlock()

	if FromFile(ctx) {
		return nil
	}
	return d.wait(ctx, done)
}

func (d *Dispatcher) wait(ctx context.Context, done <-chan struct{}) error {
	timer := time.NewTimer(d.cfg.PauseTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		log.Error(log.CatPause, "loop did not stop", "card", d.cfg.Name, "timeout", d.cfg.PauseTimeout)
		return ErrPauseTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops the print, drops the file and any cached copy and zeroes
// the counters.
func (d *Dispatcher) Cancel(ctx context.Context) error {
	if FromFile(ctx) {
		return ErrFromFile
	}
	d.mu.Lock()
	st, loaded := d.state, d.sess != nil && !d.sess.Closed()
	d.mu.Unlock()

	switch {
	case st.Active():
		if err := d.Pause(ctx); err != nil {
			return err
		}
	case st == Paused, st == Idle && loaded:
	default:
		return fmt.Errorf("cancel from %s: %w", st, ErrInvalidState)
	}

	d.mu.Lock()
	if d.state.Active() {
		d.mu.Unlock()
		return ErrBusy
	}
	d.closeSessionLocked()
	d.sess = nil
	d.name, d.path, d.reason = "", "", ""
	d.snapshot = nil
	d.mu.Unlock()

	d.cleanupCache()
	d.stats.NoteCancel()
	log.Info(log.CatDispatch, "print cancelled", "card", d.cfg.Name)

	d.mu.Lock()
	d.setStateLocked(Cancelled, "cancelled")
	d.mu.Unlock()
	return nil
}

// Reset pauses if needed, unloads everything and returns to Idle.
func (d *Dispatcher) Reset(ctx context.Context) error {
	if FromFile(ctx) {
		return ErrFromFile
	}
	if err := d.Pause(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	if d.state.Active() {
		d.mu.Unlock()
		return ErrBusy
	}
	d.resetLocked()
	d.mu.Unlock()
	d.cleanupCache()
	return nil
}

// resetLocked unloads the file and clears all counters. Caller holds d.mu,
// the loop is not running, and cleanupCache follows once d.mu is released.
func (d *Dispatcher) resetLocked() {
	d.closeSessionLocked()
	d.sess = nil
	d.name, d.path, d.reason = "", "", ""
	d.nextPos = -1
	d.snapshot = nil
	d.pauseReq.Store(false)
	d.stats.Reset()
	d.setStateLocked(Idle, "reset")
}

// SetPosition moves the resume position of a stopped print.
func (d *Dispatcher) SetPosition(offset int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Active() {
		return ErrBusy
	}
	if d.sess == nil || d.sess.Closed() {
		return ErrNoFile
	}
	if offset < 0 || offset > d.sess.Size() {
		return &session.SeekError{Offset: offset, Err: fmt.Errorf("outside file of %d bytes", d.sess.Size())}
	}
	d.sess.SetPosition(offset)
	return nil
}

// SetNextPosition makes the loop continue at offset once the current line
// returns. While stopped it behaves like SetPosition.
func (d *Dispatcher) SetNextPosition(offset int64) error {
	d.mu.Lock()
	if d.state.Active() {
		defer d.mu.Unlock()
		if offset < 0 || offset > d.sess.Size() {
			return &session.SeekError{Offset: offset, Err: fmt.Errorf("outside file of %d bytes", d.sess.Size())}
		}
		d.nextPos = offset
		return nil
	}
	d.mu.Unlock()
	return d.SetPosition(offset)
}

// NextPosition returns where the loop continues after the current line.
func (d *Dispatcher) NextPosition() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.nextPos >= 0 {
		return d.nextPos
	}
	if d.sess == nil {
		return 0
	}
	return d.sess.Position()
}

// Taskline returns per-axis progress: the counters captured by the last
// pause while one is in effect, live values otherwise.
func (d *Dispatcher) Taskline() ([]pause.AxisProgress, error) {
	d.mu.Lock()
	snap := d.snapshot
	d.mu.Unlock()
	if d.pauseReq.Load() && snap != nil {
		return snap.Axes, nil
	}
	return d.pauser.Progress()
}

// HandleShutdown stops the loop without waiting and logs the bytes around
// the current position.
func (d *Dispatcher) HandleShutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.state.Active() || d.sess == nil {
		return
	}
	d.pauseReq.Store(true)

	pos := d.sess.Position()
	data, start, err := d.sess.Window(shutdownBefore, shutdownAfter)
	if err != nil {
		log.ErrorErr(log.CatDispatch, "shutdown read", err, "card", d.cfg.Name, "position", pos)
		return
	}
	split := min(pos-start, int64(len(data)))
	log.Info(log.CatDispatch, "shutdown window",
		"card", d.cfg.Name,
		"start", start,
		"before", fmt.Sprintf("%q", data[:split]),
		"position", pos,
		"upcoming", fmt.Sprintf("%q", data[split:]),
	)
}

// Close unloads the card and stops publishing events.
func (d *Dispatcher) Close(ctx context.Context) error {
	err := d.Reset(ctx)
	if n := d.events.Dropped(); n > 0 {
		log.Warn(log.CatDispatch, "watchers missed state changes", "card", d.cfg.Name, "dropped", n)
	}
	d.events.Close()
	if errors.Is(err, ErrPauseTimeout) {
		return fmt.Errorf("close %s: %w", d.cfg.Name, err)
	}
	return err
}

func (d *Dispatcher) setStateLocked(to RunState, reason string) {
	from := d.state
	if from == to {
		return
	}
	d.state = to
	metrics.RecordTransition(d.cfg.Name, to.String())
	log.Debug(log.CatDispatch, "state", "card", d.cfg.Name, "from", from, "to", to, "reason", reason)
	d.events.Publish(pubsub.StateEvent, StateChange{Card: d.cfg.Name, From: from, To: to, Reason: reason})
}

// failLocked records reason, closes the file and enters Error.
func (d *Dispatcher) failLocked(reason string) {
	d.reason = reason
	d.closeSessionLocked()
	d.stats.NoteError(reason)
	d.setStateLocked(Error, reason)
}

func (d *Dispatcher) closeSessionLocked() {
	if d.sess == nil {
		return
	}
	if err := d.sess.Close(); err != nil {
		log.ErrorErr(log.CatDispatch, "close file", err, "path", d.sess.Path())
	}
}

func (d *Dispatcher) cleanupCache() {
	if d.cache != nil {
		d.cache.Cleanup(true)
	}
}
