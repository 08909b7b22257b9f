package session

import "fmt"

// OpenError is returned when a file cannot be opened for printing.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("unable to open file %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// SeekError is returned when the handle cannot be repositioned.
type SeekError struct {
	Offset int64
	Err    error
}

func (e *SeekError) Error() string {
	return fmt.Sprintf("unable to seek to %d: %v", e.Offset, e.Err)
}

func (e *SeekError) Unwrap() error { return e.Err }

// LineRangeError is returned when a line beyond the end of the file is
// requested.
type LineRangeError struct {
	Line  int64
	Lines int64
}

func (e *LineRangeError) Error() string {
	return fmt.Sprintf("target line number %d exceeds the total number of lines in the file (%d)", e.Line, e.Lines)
}
