package filecache

import (
	"errors"
	"fmt"
)

// ErrCacheTimeout is returned when the copy destination did not appear in
// time. Callers fall back to reading the source directly.
var ErrCacheTimeout = errors.New("cache file creation timed out")

// CacheError reports a failed cache operation. It is never fatal to a print.
type CacheError struct {
	Op   string
	Path string
	Err  error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }
