package motion

import (
	"context"
	"slices"
	"sync"

	"github.com/zjrosen/vsdcard/internal/log"
)

// Axis names reported by the simulated toolhead.
const (
	AxisX = "stepper_x"
	AxisY = "stepper_y"
	AxisZ = "stepper_z"
	AxisE = "extruder"
)

var simulatedAxes = []string{AxisX, AxisY, AxisZ, AxisE}

// move is one queued motion command that has not yet executed.
type move struct {
	line   int64
	target Position
	axes   []string
}

// Simulated is an in-memory toolhead. Moves are queued and only commit once
// more than Lag newer moves are behind them, so a quick stop loses the tail
// of the queue the way a real planner would.
type Simulated struct {
	mu       sync.Mutex
	lag      int
	pos      Position // committed position
	planned  Position // position after every queued move
	queue    []move
	progress map[string]int64
	stops    int
}

// SimOption configures a Simulated toolhead.
type SimOption func(*Simulated)

// WithLag sets how many moves stay queued before committing.
func WithLag(n int) SimOption {
	return func(s *Simulated) {
		if n >= 0 {
			s.lag = n
		}
	}
}

// NewSimulated creates a toolhead at the origin with no move lag.
func NewSimulated(opts ...SimOption) *Simulated {
	s := &Simulated{progress: make(map[string]int64, len(simulatedAxes))}
	for _, name := range simulatedAxes {
		s.progress[name] = 0
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Toolhead = (*Simulated)(nil)

// Axes implements Toolhead.
func (s *Simulated) Axes() []string {
	return slices.Clone(simulatedAxes)
}

// AxisProgress implements Toolhead.
func (s *Simulated) AxisProgress(name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.progress[name]
	if !ok {
		return 0, &UnknownAxisError{Name: name}
	}
	return v, nil
}

// SetProgress overrides an axis counter.
func (s *Simulated) SetProgress(name string, line int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.progress[name]; !ok {
		return &UnknownAxisError{Name: name}
	}
	s.progress[name] = line
	return nil
}

// QuickStop implements Toolhead. Queued moves are dropped.
func (s *Simulated) QuickStop(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.queue); n > 0 {
		log.Debug(log.CatMotion, "quick stop dropped moves", "count", n, "first_line", s.queue[0].line)
	}
	s.queue = nil
	s.planned = s.pos
	s.stops++
	return s.pos, nil
}

// Stops returns how many quick stops were performed.
func (s *Simulated) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// SetLogicalPosition implements Toolhead.
func (s *Simulated) SetLogicalPosition(ctx context.Context, pos Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = pos
	s.planned = pos
	log.Debug(log.CatMotion, "logical position set", "position", pos.String())
	return nil
}

// Position returns the committed position.
func (s *Simulated) Position() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Pending returns the number of queued moves.
func (s *Simulated) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Enqueue plans a move to target on the named axes, tagged with the file
// line that issued it (0 for interactive moves).
func (s *Simulated) Enqueue(line int64, target Position, axes ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planned = target
	s.queue = append(s.queue, move{line: line, target: target, axes: axes})
	for len(s.queue) > s.lag {
		s.commit()
	}
}

// Flush commits every queued move.
func (s *Simulated) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) > 0 {
		s.commit()
	}
}

// commit executes the oldest queued move. Caller holds s.mu.
func (s *Simulated) commit() {
	m := s.queue[0]
	s.queue = s.queue[1:]
	s.pos = m.target
	if m.line <= 0 {
		return
	}
	for _, name := range m.axes {
		s.progress[name] = m.line
	}
}

// plannedPosition returns where the toolhead ends up once the queue drains.
func (s *Simulated) plannedPosition() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.planned
}
