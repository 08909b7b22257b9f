package filecache

import (
	"context"
	"sync"
	"sync/atomic"
)

// State is the lifecycle of one background copy.
type State int32

const (
	NotStarted State = iota
	Copying
	Complete
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Copying:
		return "copying"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is one cache attempt. Only the manager's copy goroutine writes it;
// readers observe State, Copied and Err.
type Entry struct {
	SourcePath string
	DestPath   string
	Generation uint64

	state  atomic.Int32
	copied atomic.Int64

	mu   sync.Mutex
	err  error
	wake chan struct{} // closed and replaced on every progress step

	cancel context.CancelFunc
	done   chan struct{}
}

func newEntry(source, dest string, gen uint64, cancel context.CancelFunc) *Entry {
	return &Entry{
		SourcePath: source,
		DestPath:   dest,
		Generation: gen,
		wake:       make(chan struct{}),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// State returns the current copy state.
func (e *Entry) State() State {
	return State(e.state.Load())
}

// Copied returns the number of bytes written to the destination so far.
func (e *Entry) Copied() int64 {
	return e.copied.Load()
}

// Err returns the copy failure, if any.
func (e *Entry) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Done is closed when the copy goroutine has exited.
func (e *Entry) Done() <-chan struct{} {
	return e.done
}

// changed returns a channel closed at the next progress step.
func (e *Entry) changed() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wake
}

func (e *Entry) broadcast() {
	e.mu.Lock()
	close(e.wake)
	e.wake = make(chan struct{})
	e.mu.Unlock()
}

func (e *Entry) setState(s State) {
	e.state.Store(int32(s))
	e.broadcast()
}

func (e *Entry) advance(n int) {
	e.copied.Add(int64(n))
	e.broadcast()
}

func (e *Entry) fail(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
	e.setState(Failed)
}
