package core

import (
	"errors"
	"fmt"
)

var (
	ErrNoWorkflow   = errors.New("no applicable workflow")
	ErrPrecondition = errors.New("precondition violated")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("document was modified concurrently")
	ErrReentrancy   = errors.New("workflow calls nested too deep")
)

// A WorkflowError carries a human-readable reason for a failed workflow operation.
// Err is one of the sentinel errors above, so callers can use errors.Is.
type WorkflowError struct {
	Op     string
	Reason string
	Err    error
}

func (e *WorkflowError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func Precondition(op, format string, args ...interface{}) error {
	return &WorkflowError{Op: op, Reason: fmt.Sprintf(format, args...), Err: ErrPrecondition}
}

func Unauthorized(op, format string, args ...interface{}) error {
	return &WorkflowError{Op: op, Reason: fmt.Sprintf(format, args...), Err: ErrUnauthorized}
}

func NoWorkflow(op, format string, args ...interface{}) error {
	return &WorkflowError{Op: op, Reason: fmt.Sprintf(format, args...), Err: ErrNoWorkflow}
}
