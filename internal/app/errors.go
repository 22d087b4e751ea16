package app

import (
	"errors"
	"fmt"
)

// ErrNoScript indicates Run was called without a program to evaluate.
var ErrNoScript = errors.New("no script given")

// OperationError represents an error that occurred during one step of a run.
type OperationError struct {
	Op     string // Step name (e.g., "start engine", "write tracefile")
	Target string // File the step worked on, if any
	Err    error  // Underlying error
}

func (e *OperationError) Error() string {
	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Target)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
