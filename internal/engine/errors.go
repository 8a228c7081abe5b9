package engine

import (
	"errors"
	"fmt"
)

// RuntimeError reports why an engine run stopped before its fixed point.
//
// The core evaluation itself cannot fail; runtime errors only come from the
// guards a caller installs around it (pass quota, context cancellation).
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Pass is the pass during or before which the run stopped.
	Pass int

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodePassLimit indicates the run exceeded its pass quota.
	ErrCodePassLimit RuntimeErrorCode = "PASS_LIMIT"

	// ErrCodeCancelled indicates the run's context was cancelled or timed out.
	ErrCodeCancelled RuntimeErrorCode = "CANCELLED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Pass > 0 {
		return fmt.Sprintf("%s: %s (pass=%d)", e.Code, e.Message, e.Pass)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsCancelled returns true if the run stopped because of its context.
func IsCancelled(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCancelled
	}
	return false
}

// newPassLimitError wraps a PassLimitExceededError.
func newPassLimitError(pass int, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodePassLimit,
		Message: "pass quota exhausted before fixed point",
		Pass:    pass,
		Err:     err,
	}
}

// newCancelledError wraps a context error.
func newCancelledError(pass int, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCancelled,
		Message: "run cancelled before fixed point",
		Pass:    pass,
		Err:     err,
	}
}
