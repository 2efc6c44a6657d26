package prefetch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned by the constructors for a missing source
	// or codec, or an inconsistent worker/window pair.
	ErrInvalidArgument = errors.New("prefetch: invalid argument")

	// ErrIndexOutOfRange is returned by Get for an index outside [0, Size()).
	ErrIndexOutOfRange = errors.New("prefetch: index out of range")

	// ErrFetch is matched by every *FetchError.
	ErrFetch = errors.New("prefetch: fetch failed")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("prefetch: closed")
)

// IndexError reports a Get call with an index outside the source.
// It never mutates the window.
type IndexError struct {
	Index int64
	Size  int64
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("prefetch: index %d out of range [0, %d)", e.Index, e.Size)
}

// Is reports whether target is ErrIndexOutOfRange.
func (e *IndexError) Is(target error) bool { return target == ErrIndexOutOfRange }

// FetchError carries a failure raised while producing the sample for Index:
// the source's Get, the codec, or a panic inside the worker task.
type FetchError struct {
	Index int64
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("prefetch: fetch index %d: %v", e.Index, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is reports whether target is ErrFetch.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }
