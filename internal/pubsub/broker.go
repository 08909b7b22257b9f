package pubsub

import (
	"context"
	"sync"
	"time"
)

const defaultBufferSize = 64

// Broker fans out card state changes and log entries to watchers.
// The latest event is kept, so a watcher that attaches mid-print can read
// the current state without waiting for the next transition.
type Broker[T any] struct {
	mu       sync.RWMutex
	watchers map[chan Event[T]]struct{}
	closed   chan struct{}
	depth    int
	last     *Event[T]
	dropped  uint64
}

// NewBroker returns a broker whose watcher queues hold 64 events.
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](defaultBufferSize)
}

// NewBrokerWithBuffer returns a broker whose watcher queues hold depth events.
func NewBrokerWithBuffer[T any](depth int) *Broker[T] {
	return &Broker[T]{
		watchers: make(map[chan Event[T]]struct{}),
		closed:   make(chan struct{}),
		depth:    depth,
	}
}

func (b *Broker[T]) isClosed() bool {
	select {
	case <-b.closed:
		return true
	default:
		return false
	}
}

// Subscribe attaches a watcher. Its channel closes when ctx ends or the
// broker shuts down; on an already closed broker it is returned closed.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isClosed() {
		ch := make(chan Event[T])
		close(ch)
		return ch
	}

	ch := make(chan Event[T], b.depth)
	b.watchers[ch] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.closed:
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.isClosed() {
			return
		}
		delete(b.watchers, ch)
		close(ch)
	}()

	return ch
}

// Publish records payload as the latest event and queues it for every
// watcher. A watcher whose queue is full misses the event; the dispatch
// loop never waits on a slow reader.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isClosed() {
		return
	}

	ev := Event[T]{Type: eventType, Payload: payload, Timestamp: time.Now()}
	b.last = &ev

	for ch := range b.watchers {
		select {
		case ch <- ev:
		default:
			b.dropped++
		}
	}
}

// Close detaches every watcher. Later publishes are ignored.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isClosed() {
		return
	}
	close(b.closed)
	for ch := range b.watchers {
		close(ch)
	}
	b.watchers = nil
}

// Last returns the most recently published event, if any.
func (b *Broker[T]) Last() (Event[T], bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.last == nil {
		return Event[T]{}, false
	}
	return *b.last, true
}

// Dropped counts events lost to full watcher queues.
func (b *Broker[T]) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// SubscriberCount returns the number of attached watchers.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.watchers)
}
