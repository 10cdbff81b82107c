// Package api provides error types for management API responses.
package api

import (
	"errors"
	"fmt"
)

// StatusError is returned for non-2xx API responses.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("api: %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("api: %s", e.Status)
}

// IsAuthError checks if an error indicates rejected credentials.
//
// Relay calls surface remote credential problems as 401/403 responses from
// the local installation, so this covers both the local and the remote case.
func IsAuthError(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode == 401 || statusErr.StatusCode == 403
}

// IsNotFound checks if an error indicates a missing resource, typically a
// backend GUID that disappeared between the list and detail calls.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode == 404
}
