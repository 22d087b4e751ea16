package interrupt

import (
	"errors"
	"fmt"
)

// Sentinel errors for the interrupt register.
var (
	// ErrNotFound is returned when no live script encloses a requested
	// file and line.
	ErrNotFound = errors.New("no script found")

	// ErrConnectionsOpen is returned by Close while connections are still live.
	ErrConnectionsOpen = errors.New("connections still open")
)

// ResolveError reports a failed file and line resolution.
type ResolveError struct {
	// Filename is the requested file.
	Filename string

	// Line is the requested line.
	Line int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("could not find a script satisfying %s:%d: %v", e.Filename, e.Line, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// InvariantError describes a broken accounting invariant. It is raised with
// panic, never returned: continuing after one would corrupt hook state.
type InvariantError struct {
	// Op is the operation that detected the violation.
	Op string

	// Message describes the violation.
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return "invariant violated in " + e.Op + ": " + e.Message
}

// violate panics with an InvariantError.
func violate(op, format string, args ...any) {
	panic(&InvariantError{Op: op, Message: fmt.Sprintf(format, args...)})
}
