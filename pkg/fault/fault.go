// Package fault defines the error kinds reported by the snap storage engine.
//
// Every failure surfaced by the object store, index, tree builder and commit
// chain wraps exactly one of the sentinel kinds below, so callers classify
// errors with errors.Is regardless of the message text.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrIO reports a filesystem read, write or mkdir failure.
	ErrIO = errors.New("i/o error")
	// ErrNotFound reports a lookup for an object, path or ref that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPrecondition reports an operation on a repository that is not
	// initialised (or whose configuration does not match the request).
	ErrPrecondition = errors.New("precondition failed")
	// ErrInvalidInput reports a malformed argument, such as snapshotting a
	// path that is not a directory.
	ErrInvalidInput = errors.New("invalid input")
)

// IOError describes a failed filesystem operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// IO wraps err as an *IOError. A nil err yields nil.
func IO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// NotFound wraps ErrNotFound with a formatted description.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Precondition wraps ErrPrecondition with a formatted description.
func Precondition(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrPrecondition)
}

// InvalidInput wraps ErrInvalidInput with a formatted description.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}
