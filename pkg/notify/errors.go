package notify

import (
	"errors"
	"fmt"
)

var (
	// ErrNoURL is returned when a webhook sender has no target.
	ErrNoURL = errors.New("notify: webhook URL required")

	// ErrClosed is returned when sending through a closed dispatcher.
	ErrClosed = errors.New("notify: dispatcher closed")
)

// StatusError is returned when a webhook answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	URL        string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("notify: webhook %s answered %d", e.URL, e.StatusCode)
}

// IsRetryable returns true for rate limits and server errors.
func (e *StatusError) IsRetryable() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}
