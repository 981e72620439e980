package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionExpired indicates the access token was rejected and could not be
// refreshed. Persisted tokens have been cleared when it is returned.
var ErrSessionExpired = errors.New("session expired")

// Envelope is the uniform response wrapper used by every backend endpoint.
type Envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
	Error     *ErrorBody      `json:"error,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// ErrorBody is the structured error of a failed envelope.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// APIError is returned when the backend answered with success=false or a
// non-2xx status.
type APIError struct {
	Method   string
	Path     string
	Status   int
	Envelope Envelope
}

func (e *APIError) Error() string {
	msg := e.Envelope.Message
	if e.Envelope.Error != nil && e.Envelope.Error.Message != "" {
		msg = e.Envelope.Error.Message
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// Unauthorized reports whether the backend rejected the credentials.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// TransportError is returned when no response was received.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
