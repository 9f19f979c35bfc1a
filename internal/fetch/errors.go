package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrRetriesExhausted wraps the last error after all attempts failed.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrUnexpectedStatus is returned for a non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrBodyTooLarge is returned when the body exceeds the size limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")

	// ErrInvalidRetryPolicy is returned by RetryPolicy.Validate.
	ErrInvalidRetryPolicy = errors.New("invalid retry policy: attempts must be positive and delay non-negative")
)

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

// IsPermanent reports whether err should not be retried.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// StatusError describes a non-2xx response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnexpectedStatus, e.StatusCode)
}

// Unwrap lets errors.Is match ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}
