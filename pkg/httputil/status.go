package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single backend request.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotFound is returned by [CheckStatus] for 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrStatus is returned by [CheckStatus] for any other non-2xx response.
	ErrStatus = errors.New("unexpected status")
)

// NewClient returns an HTTP client with the given timeout (or
// [DefaultTimeout] when timeout is zero).
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// CheckStatus classifies an HTTP status code.
func CheckStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests, code >= 500:
		return &RetryableError{Err: fmt.Errorf("%w: %d", ErrStatus, code)}
	default:
		return fmt.Errorf("%w: %d", ErrStatus, code)
	}
}
