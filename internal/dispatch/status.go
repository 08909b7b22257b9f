package dispatch

import "fmt"

// Status is a point-in-time view of one card.
type Status struct {
	Card     string   `json:"card"`
	FilePath string   `json:"file_path,omitempty"`
	Progress float64  `json:"progress"`
	Active   bool     `json:"is_active"`
	Loaded   bool     `json:"loaded"`
	Line     int64    `json:"file_line"`
	Position int64    `json:"file_position"`
	Size     int64    `json:"file_size"`
	State    RunState `json:"-"`
	Error    string   `json:"error,omitempty"`
}

// StateName is the state as reported to clients.
func (s Status) StateName() string {
	return s.State.String()
}

// M27 renders the classic byte-progress line.
func (s Status) M27() string {
	if !s.Loaded {
		return "Not SD printing."
	}
	return fmt.Sprintf("SD printing byte %d/%d", s.Position, s.Size)
}

// Status reports the card. Values stay readable after an error closes the
// file so the failure point can be inspected.
func (d *Dispatcher) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := Status{
		Card:   d.cfg.Name,
		Active: d.state.Active(),
		State:  d.state,
		Error:  d.reason,
	}
	if d.sess == nil {
		return st
	}
	st.FilePath = d.sess.Path()
	st.Loaded = !d.sess.Closed()
	st.Line = d.sess.Line()
	st.Position = d.sess.Position()
	st.Size = d.sess.Size()
	st.Progress = progress(st.Position, st.Size)
	return st
}

// Progress returns Position/Size, 0 with no file.
func (d *Dispatcher) Progress() float64 {
	return d.Status().Progress
}

// IsActive reports whether the loop is running.
func (d *Dispatcher) IsActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Active()
}

// State returns the current run state.
func (d *Dispatcher) State() RunState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func progress(pos, size int64) float64 {
	if size <= 0 {
		return 0
	}
	return float64(pos) / float64(size)
}
