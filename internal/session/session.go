// Package session holds the open print file and its read position.
package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zjrosen/vsdcard/internal/log"
)

// Handle is the read side of an open print file. *os.File satisfies it, as
// does the cache handle that follows a copy in progress.
type Handle interface {
	io.Reader
	io.Seeker
	io.ReaderAt
	io.Closer
}

// Session tracks one open file. It is not safe for concurrent use; the
// dispatcher serialises access.
type Session struct {
	path     string
	handle   Handle
	size     int64
	position int64
	line     int64
	closed   bool
}

// Open opens path for sequential reading and records its size.
func Open(path string) (*Session, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from the catalog
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		_ = f.Close()
		return nil, &OpenError{Path: path, Err: err}
	}
	log.Debug(log.CatSession, "opened", "path", path, "size", size)
	return &Session{path: path, handle: f, size: size}, nil
}

// Path returns the path the session was opened from.
func (s *Session) Path() string { return s.path }

// Size returns the file size captured at open time.
func (s *Session) Size() int64 { return s.size }

// Position returns the number of bytes consumed so far.
func (s *Session) Position() int64 { return s.position }

// Line returns the number of lines dispatched so far.
func (s *Session) Line() int64 { return s.line }

// Closed reports whether Close has been called.
func (s *Session) Closed() bool { return s.closed }

// Redirect replaces the read handle, closing the previous one. Size, path
// and counters are kept.
func (s *Session) Redirect(h Handle) error {
	if s.closed {
		return errors.New("session closed")
	}
	if _, err := h.Seek(s.position, io.SeekStart); err != nil {
		return &SeekError{Offset: s.position, Err: err}
	}
	old := s.handle
	s.handle = h
	if err := old.Close(); err != nil {
		log.ErrorErr(log.CatSession, "closing replaced handle", err, "path", s.path)
	}
	return nil
}

// SeekTo moves the read position. Offsets outside [0, Size] are rejected.
func (s *Session) SeekTo(offset int64) error {
	if offset < 0 || offset > s.size {
		return &SeekError{Offset: offset, Err: fmt.Errorf("outside file of %d bytes", s.size)}
	}
	if s.closed {
		return &SeekError{Offset: offset, Err: os.ErrClosed}
	}
	if _, err := s.handle.Seek(offset, io.SeekStart); err != nil {
		return &SeekError{Offset: offset, Err: err}
	}
	s.position = offset
	return nil
}

// SetPosition records a new position without touching the handle. The next
// SeekTo(Position()) applies it.
func (s *Session) SetPosition(offset int64) {
	s.position = offset
}

// SetLine overwrites the dispatched line counter.
func (s *Session) SetLine(line int64) {
	s.line = line
}

// Read reads the next chunk from the handle.
func (s *Session) Read(buf []byte) (int, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.handle.Read(buf)
}

// Advance accounts for one dispatched line that consumed n bytes.
func (s *Session) Advance(n int64) {
	s.position += n
	s.line++
}

// LineStartOffset returns the byte offset at which the 1-based target line
// starts. It scans from the beginning with ReadAt so the sequential read
// position is left alone.
func (s *Session) LineStartOffset(target int64) (int64, error) {
	if target <= 0 {
		return 0, nil
	}
	if s.closed {
		return 0, os.ErrClosed
	}

	r := bufio.NewReaderSize(io.NewSectionReader(s.handle, 0, s.size), 64*1024)
	var offset, lines int64
	for lines < target-1 {
		chunk, err := r.ReadSlice('\n')
		offset += int64(len(chunk))
		if err == nil {
			lines++
			continue
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			if len(chunk) > 0 {
				lines++ // unterminated last line
			}
			return 0, &LineRangeError{Line: target, Lines: lines}
		}
		return 0, err
	}
	if offset >= s.size {
		return 0, &LineRangeError{Line: target, Lines: lines}
	}
	return offset, nil
}

// Window reads up to before bytes preceding the position and after bytes
// following it. It returns the offset of the first byte read.
func (s *Session) Window(before, after int64) ([]byte, int64, error) {
	if s.closed {
		return nil, 0, os.ErrClosed
	}
	start := max(s.position-before, 0)
	buf := make([]byte, s.position-start+after)
	n, err := s.handle.ReadAt(buf, start)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, start, err
	}
	return buf[:n], start, nil
}

// Close releases the handle. Safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	log.Debug(log.CatSession, "closed", "path", s.path, "position", s.position)
	return s.handle.Close()
}
