package genclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrEmptyPrompt = errors.New("genclient: prompt is empty")
	ErrInFlight    = errors.New("genclient: a generation is already in progress")
)

// StatusError is a non-success answer from the server. A 2xx carrying
// success=false is reported with its own status code.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether another attempt may succeed
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// retryable is true for transport failures and retryable statuses
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return !errors.Is(err, errDecode)
}

var errDecode = errors.New("genclient: malformed response body")
