package lua

import (
	"errors"
	"fmt"
)

// Errors for engine operations.
var (
	// ErrEngineClosed is returned when operating on a closed engine.
	ErrEngineClosed = errors.New("lua engine is closed")

	// ErrNoCode is returned when a line has no statement at or after it in
	// the script.
	ErrNoCode = errors.New("no code at or after line")

	// ErrForeignScript is returned for script handles this engine did not
	// create.
	ErrForeignScript = errors.New("script not owned by this engine")
)

// ChunkError reports a failure to load or run a chunk.
type ChunkError struct {
	// Name is the chunk name, the absolute path for files.
	Name string

	// Op is "load" or "run".
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ChunkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ChunkError) Unwrap() error {
	return e.Err
}
