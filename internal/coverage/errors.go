package coverage

import (
	"errors"
	"fmt"
)

// ErrUnreadable indicates that a source file could not be read when its
// first script was loaded.
var ErrUnreadable = errors.New("source unreadable")

// SourceError records a failure to read the source of a covered file.
type SourceError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("coverage source %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// unreadable wraps a read failure so that it matches both ErrUnreadable
// and the original cause.
func unreadable(path string, cause error) *SourceError {
	return &SourceError{Path: path, Err: fmt.Errorf("%w: %w", ErrUnreadable, cause)}
}
