package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for transport-level failures.
// Check with errors.Is().
var (
	// ErrNetwork indicates the request never produced an HTTP response
	// (connection refused, DNS failure, timeout).
	ErrNetwork = errors.New("network error")

	// ErrNoRefreshToken indicates a 401 could not be recovered because no
	// refresh token is stored.
	ErrNoRefreshToken = errors.New("no refresh token")
)

// APIError is a backend-reported failure (any non-2xx response).
// Detail carries the backend's human-readable message verbatim and is safe
// to surface to the user.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api error (status %d)", e.StatusCode)
}

// IsAuthError reports whether err is a backend 401 (invalid credentials or
// expired/invalid token).
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// ErrorDetail extracts the user-facing message from any client error:
// the backend detail when present, the error text otherwise.
func ErrorDetail(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return err.Error()
}
