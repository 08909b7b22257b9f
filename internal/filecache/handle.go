package filecache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/zjrosen/vsdcard/internal/log"
)

// Handle reads a cached file while it is still being copied. Reads past the
// copied prefix block until more bytes land. If the copy fails the handle
// switches to the source file at the same offset.
type Handle struct {
	entry *Entry
	size  int64

	mu       sync.Mutex
	cached   *os.File
	fallback *os.File
	pos      int64
	closed   bool
}

func newHandle(e *Entry, f *os.File, size int64) *Handle {
	return &Handle{entry: e, cached: f, size: size}
}

// Entry returns the cache attempt backing the handle.
func (h *Handle) Entry() *Entry {
	return h.entry
}

// UsingSource reports whether the handle fell back to the source file.
func (h *Handle) UsingSource() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fallback != nil
}

// Read implements io.Reader.
func (h *Handle) Read(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n, err := h.readAt(p, h.pos, false)
	h.pos += int64(n)
	return n, err
}

// ReadAt implements io.ReaderAt. It fills p completely unless EOF or an
// error intervenes.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.readAt(p, off, true)
}

// Seek implements io.Seeker over the expected final size.
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, os.ErrClosed
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = h.pos + offset
	case io.SeekEnd:
		abs = h.size + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	h.pos = abs
	return abs, nil
}

// Close releases both files.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	err := h.cached.Close()
	if h.fallback != nil {
		err = errors.Join(err, h.fallback.Close())
	}
	return err
}

// readAt reads from off, waiting for the copy as needed. With full set it
// keeps going until p is filled. Caller holds h.mu.
func (h *Handle) readAt(p []byte, off int64, full bool) (int, error) {
	if h.closed {
		return 0, os.ErrClosed
	}
	total := 0
	for total < len(p) {
		cur := off + int64(total)
		if cur >= h.size {
			return total, io.EOF
		}

		if h.fallback != nil {
			n, err := h.fallback.ReadAt(p[total:], cur)
			total += n
			if err != nil || !full {
				return total, err
			}
			continue
		}

		wake := h.entry.changed()
		state := h.entry.State()
		avail := h.entry.Copied()

		if cur < avail {
			want := min(int64(len(p)-total), avail-cur)
			n, err := h.cached.ReadAt(p[total:total+int(want)], cur)
			total += n
			if err != nil && !errors.Is(err, io.EOF) {
				return total, err
			}
			if !full {
				return total, nil
			}
			continue
		}

		switch state {
		case Complete:
			// Source shrank after open.
			return total, io.EOF
		case Failed:
			if err := h.switchToSource(); err != nil {
				return total, err
			}
		default:
			if total > 0 && !full {
				return total, nil
			}
			h.mu.Unlock()
			<-wake
			h.mu.Lock()
			if h.closed {
				return total, os.ErrClosed
			}
		}
	}
	return total, nil
}

// switchToSource opens the original file. Caller holds h.mu.
func (h *Handle) switchToSource() error {
	f, err := os.Open(h.entry.SourcePath)
	if err != nil {
		return &CacheError{Op: "fallback", Path: h.entry.SourcePath, Err: err}
	}
	h.fallback = f
	log.Warn(log.CatCache, "cache copy failed, reading source", "source", h.entry.SourcePath, "cause", h.entry.Err())
	return nil
}
