package domain

import (
	"errors"
	"fmt"
)

// Common domain errors surfaced by ranking sessions and the statistics
// engine. All are synchronous contract violations: none are retried
// automatically, and a failing call leaves session state untouched.
var (
	// ErrUnknownItem indicates that a comparison referenced an item that
	// is not part of the session's item set.
	ErrUnknownItem = errors.New("item not part of session")

	// ErrSelfComparison indicates that a comparison named the same item
	// as both winner and loser.
	ErrSelfComparison = errors.New("item compared against itself")

	// ErrSessionStopped indicates that SelectPair or RecordComparison was
	// called on a session that has already stopped. Undo clears it.
	ErrSessionStopped = errors.New("session already stopped")

	// ErrEmptyHistory indicates that an undo was requested with no
	// comparisons recorded.
	ErrEmptyHistory = errors.New("no comparison to undo")

	// ErrNotPositiveDefinite indicates that a Cholesky factorization
	// encountered a non-positive-definite matrix. The regularizing prior
	// should prevent this; it must never be silently tolerated.
	ErrNotPositiveDefinite = errors.New("matrix not positive definite")

	// ErrInvalidConfiguration indicates that session configuration failed
	// validation.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// NumericalError wraps a failure inside the Bayesian refit with context
// about where the optimizer was when it failed. The in-progress refit is
// aborted and committed session state is left unchanged.
type NumericalError struct {
	// Op names the numerical operation that failed, e.g. "cholesky".
	Op string

	// Iteration is the Newton iteration during which the failure occurred.
	Iteration int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for NumericalError.
func (e *NumericalError) Error() string {
	return fmt.Sprintf("numerical failure: op=%s, iteration=%d, err=%v", e.Op, e.Iteration, e.Err)
}

// Unwrap returns the underlying error, supporting errors.Is/As.
func (e *NumericalError) Unwrap() error { return e.Err }

// NewNumericalError creates a NumericalError with the given details.
func NewNumericalError(op string, iteration int, err error) *NumericalError {
	return &NumericalError{Op: op, Iteration: iteration, Err: err}
}
