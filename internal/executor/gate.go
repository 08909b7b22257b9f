package executor

import (
	"sync"
	"sync/atomic"
)

// Gate serialises every caller of the executor. Its contention can be tested
// without blocking, which the file dispatcher relies on to stay out of the
// way of interactive commands.
type Gate struct {
	mu   sync.Mutex
	held atomic.Bool
}

// Lock blocks until the gate is acquired.
func (g *Gate) Lock() {
	g.mu.Lock()
	g.held.Store(true)
}

// TryLock acquires the gate only if nobody holds it.
func (g *Gate) TryLock() bool {
	if !g.mu.TryLock() {
		return false
	}
	g.held.Store(true)
	return true
}

// Unlock releases the gate.
func (g *Gate) Unlock() {
	g.held.Store(false)
	g.mu.Unlock()
}

// Held reports whether some caller currently owns the gate.
func (g *Gate) Held() bool {
	return g.held.Load()
}
