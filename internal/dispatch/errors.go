package dispatch

import "errors"

var (
	// ErrBusy rejects operations that need the loop stopped.
	ErrBusy = errors.New("SD busy")
	// ErrNoFile is returned when an operation needs a loaded file.
	ErrNoFile = errors.New("no file loaded")
	// ErrInvalidState is returned for transitions the state machine forbids.
	ErrInvalidState = errors.New("invalid run state")
	// ErrPauseTimeout is returned when the loop did not stop in time.
	ErrPauseTimeout = errors.New("timed out waiting for pause")
	// ErrFromFile rejects operations that would wait on the loop from inside it.
	ErrFromFile = errors.New("cannot be run from the sdcard")
)
