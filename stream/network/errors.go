package network

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the remote service. The message is
// the remote's own error text when it could be extracted, otherwise the raw
// response body.
type APIError struct {
	StatusCode int
	Message    string
}

// Error ...
func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsClientError reports whether the remote rejected the request (4xx).
// These are not retriable.
func (e *APIError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsServerError reports whether the remote failed transiently (5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
