package dispatch

// RunState is the dispatcher's lifecycle state.
type RunState int

const (
	Idle RunState = iota
	Printing
	PausePending
	Paused
	Cancelled
	Error
	Complete
)

func (s RunState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Printing:
		return "printing"
	case PausePending:
		return "pause_pending"
	case Paused:
		return "paused"
	case Cancelled:
		return "cancelled"
	case Error:
		return "error"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Active reports whether the loop goroutine is running.
func (s RunState) Active() bool {
	return s == Printing || s == PausePending
}

// Terminal reports whether a new selection is needed to print again.
func (s RunState) Terminal() bool {
	return s == Cancelled || s == Error || s == Complete
}

// StateChange is published on every transition.
type StateChange struct {
	Card   string
	From   RunState
	To     RunState
	Reason string
}
