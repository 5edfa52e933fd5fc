package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingCredential indicates no API key is configured. It is terminal and
// never retried.
var ErrMissingCredential = errors.New("missing generative API credential")

// APIError represents a non-2xx response (or transport failure) from the
// generative API.
type APIError struct {
	// StatusCode is the HTTP status, or 0 for network-level failures where no
	// status was received.
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("generative API transport error: %v", e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("generative API error %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("generative API error %d", e.StatusCode)
}

// Unwrap returns the underlying transport error, if any
func (e *APIError) Unwrap() error {
	return e.Err
}

// Transient reports whether the error is worth retrying. Absence of a status
// code means the request never completed (timeout, connection reset), which is
// treated the same as an upstream overload.
func (e *APIError) Transient() bool {
	switch e.StatusCode {
	case 0,
		http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// AuthFailure reports whether the error is an authorization-class failure
// (401/403), used to trigger the query-parameter credential fallback.
func (e *APIError) AuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// ErrModelUnavailable indicates the primary model (and the secondary, if
// configured) have been exhausted.
var ErrModelUnavailable = errors.New("model unavailable after retries")

// CallError tags an upstream failure with how far the retry controller got
// before giving up.
type CallError struct {
	Attempts      int
	UsedSecondary bool
	Err           error
}

// Error implements the error interface
func (e *CallError) Error() string {
	return fmt.Sprintf("generate call failed after %d attempt(s): %v", e.Attempts, e.Err)
}

// Unwrap returns the underlying upstream error
func (e *CallError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err should trigger a retry
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	return false
}
