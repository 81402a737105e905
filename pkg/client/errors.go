package client

import (
	"errors"
	"fmt"
)

// ErrUnsupported means the platform lacks a capability push needs. Terminal,
// nothing to retry.
var ErrUnsupported = errors.New("push notifications are not supported on this platform")

// ErrPermissionDenied means the user declined notifications. Terminal until
// the user changes the platform setting themselves; platforms refuse to
// re-prompt.
var ErrPermissionDenied = errors.New("notification permission was denied")

// HTTPError represents a non-2xx response from the subscription endpoint.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err wraps an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}
