// Package executor is the in-process command executor: it parses one line at a
// time, routes it to a registered handler and serialises every caller
// through a single Gate.
package executor

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/zjrosen/vsdcard/internal/log"
)

// Handler runs one parsed command.
type Handler func(ctx context.Context, cmd *Command) error

type registration struct {
	handler Handler
	desc    string
}

// Option configures the Executor.
type Option func(*Executor)

// WithOutput sets where responses are written.
func WithOutput(w io.Writer) Option {
	return func(e *Executor) {
		e.out = w
	}
}

// WithFallback sets the handler for commands nobody registered.
func WithFallback(h Handler) Option {
	return func(e *Executor) {
		e.fallback = h
	}
}

// Executor dispatches command lines to handlers.
type Executor struct {
	gate Gate

	mu       sync.RWMutex
	handlers map[string]registration
	fallback Handler

	outMu sync.Mutex
	out   io.Writer
}

// New creates an Executor. Without a fallback, unknown commands fail with
// a CommandError.
func New(opts ...Option) *Executor {
	e := &Executor{
		handlers: make(map[string]registration),
		out:      io.Discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register installs a handler for name. Registering the same name twice is
// a programming error and returns an error.
func (e *Executor) Register(name string, h Handler, desc string) error {
	name = strings.ToUpper(name)
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.handlers[name]; exists {
		return fmt.Errorf("command %s already registered", name)
	}
	e.handlers[name] = registration{handler: h, desc: desc}
	return nil
}

// Commands returns registered command names with their descriptions, sorted.
func (e *Executor) Commands() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.handlers))
	for name, reg := range e.handlers {
		if reg.desc == "" {
			out = append(out, name)
			continue
		}
		out = append(out, name+": "+reg.desc)
	}
	sort.Strings(out)
	return out
}

// Gate exposes the mutual-exclusion gate.
func (e *Executor) Gate() *Gate {
	return &e.gate
}

// TryLock acquires the gate without blocking.
func (e *Executor) TryLock() bool {
	return e.gate.TryLock()
}

// Unlock releases the gate.
func (e *Executor) Unlock() {
	e.gate.Unlock()
}

// Run acquires the gate and executes script.
func (e *Executor) Run(ctx context.Context, script string) error {
	e.gate.Lock()
	defer e.gate.Unlock()
	return e.RunLocked(ctx, script)
}

// RunLocked executes every line of script in order. The caller must hold the
// gate. Execution stops at the first failing line.
func (e *Executor) RunLocked(ctx context.Context, script string) error {
	for _, line := range strings.Split(script, "\n") {
		cmd := parseLine(line)
		if cmd == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		cmd.exec = e
		if err := e.dispatch(ctx, cmd); err != nil {
			log.Debug(log.CatExec, "command failed", "command", cmd.Raw, "error", err)
			return err
		}
	}
	return nil
}

func (e *Executor) dispatch(ctx context.Context, cmd *Command) error {
	e.mu.RLock()
	reg, ok := e.handlers[cmd.Name]
	fallback := e.fallback
	e.mu.RUnlock()

	if ok {
		return reg.handler(ctx, cmd)
	}
	if fallback != nil {
		return fallback(ctx, cmd)
	}
	return cmd.Errorf("Unknown command:\"%s\"", cmd.Name)
}

// Respond writes a response line to the output.
func (e *Executor) Respond(msg string) {
	e.outMu.Lock()
	defer e.outMu.Unlock()
	if _, err := fmt.Fprintln(e.out, msg); err != nil {
		log.ErrorErr(log.CatExec, "write response", err)
	}
}
