package engine

import "errors"

var (
	// ErrCommandRegistryRequired indicates a missing command registry.
	ErrCommandRegistryRequired = errors.New("command registry is required")
	// ErrDeciderRequired indicates a missing decider.
	ErrDeciderRequired = errors.New("decider is required")
	// ErrStoreRequired indicates a missing document store.
	ErrStoreRequired = errors.New("document store is required")
)

// nonRetryableError wraps an error to signal that retrying the command
// cannot succeed or would publish outcomes twice.
type nonRetryableError struct {
	err error
}

func (e *nonRetryableError) Error() string { return e.err.Error() }
func (e *nonRetryableError) Unwrap() error { return e.err }

// NonRetryable returns true from IsNonRetryable checks.
func (e *nonRetryableError) NonRetryable() bool { return true }

// wrapNonRetryable marks an error as non-retryable.
func wrapNonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRetryableError{err: err}
}

// IsNonRetryable returns true when the error (or any error in its chain)
// signals that the command must not be retried. Transports use it to turn a
// failure into a permanent one instead of a retry hint.
func IsNonRetryable(err error) bool {
	var target interface{ NonRetryable() bool }
	if errors.As(err, &target) {
		return target.NonRetryable()
	}
	return false
}
