// Package progcat crawls paginated programme listings into an indexed
// catalog. The error taxonomy shared by the fetch, decode, traversal and
// assembly stages lives here.
package progcat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrInvariantViolation marks a bug in the engine rather than bad input
// data. It is fatal to the current traversal run.
var ErrInvariantViolation = errors.New("invariant violation")

// Invariantf returns an error wrapping ErrInvariantViolation.
func Invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// DecodeError reports that a fetched page could not be parsed into a
// document at all.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FetchError reports that a page could not be retrieved. Permanent errors
// (not found, gone, other client errors) are never retried.
type FetchError struct {
	URL        string
	StatusCode int
	Permanent  bool
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewStatusError classifies an HTTP status code into a FetchError. A 3xx
// that reaches here was not followed and will not change on retry. 408 and
// 429 are the client errors worth retrying.
func NewStatusError(url string, status int) *FetchError {
	permanent := status >= 300 && status < 500 &&
		status != http.StatusRequestTimeout &&
		status != http.StatusTooManyRequests

	return &FetchError{
		URL:        url,
		StatusCode: status,
		Permanent:  permanent,
		Err:        fmt.Errorf("HTTP error: %d %s", status, http.StatusText(status)),
	}
}

// IsPermanent reports whether err should not be retried. A FetchError says
// so itself; decode errors and bare context errors are permanent; anything
// else is treated as transient.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Permanent
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return true
	}

	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
