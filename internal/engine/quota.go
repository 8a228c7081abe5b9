package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxPasses is the pass limit the CLI applies when none is given.
// The engine itself defaults to no limit.
const DefaultMaxPasses = 1000

// PassQuota counts engine passes and enforces a maximum.
//
// A limit of 0 disables enforcement: the core engine loops until its rules
// reach a fixed point, however long that takes. A positive limit is the
// integration-boundary guard against rule sets that never converge.
type PassQuota struct {
	maxPasses int
	current   int
}

// NewPassQuota creates a quota allowing maxPasses passes (0 = unlimited).
func NewPassQuota(maxPasses int) *PassQuota {
	return &PassQuota{maxPasses: maxPasses}
}

// Check counts one pass and validates against the limit.
//
// Returns PassLimitExceededError when the pass about to run would exceed it.
func (q *PassQuota) Check() error {
	q.current++
	if q.maxPasses > 0 && q.current > q.maxPasses {
		return &PassLimitExceededError{
			Passes: q.current,
			Limit:  q.maxPasses,
		}
	}
	return nil
}

// Reset resets the pass counter to 0.
func (q *PassQuota) Reset() {
	q.current = 0
}

// Current returns the number of passes counted so far.
func (q *PassQuota) Current() int {
	return q.current
}

// MaxPasses returns the configured limit (0 = unlimited).
func (q *PassQuota) MaxPasses() int {
	return q.maxPasses
}

// PassLimitExceededError is returned when a run needs more passes than its
// quota allows. The store keeps every fact inserted before the limit hit.
type PassLimitExceededError struct {
	Passes int // Pass that would have run
	Limit  int // Maximum allowed passes
}

// Error implements the error interface.
func (e *PassLimitExceededError) Error() string {
	return fmt.Sprintf("rule set did not converge: pass %d exceeds limit of %d", e.Passes, e.Limit)
}

// IsPassLimitError returns true if the error is a PassLimitExceededError.
// Uses errors.As to handle wrapped errors.
func IsPassLimitError(err error) bool {
	var pe *PassLimitExceededError
	return errors.As(err, &pe)
}
