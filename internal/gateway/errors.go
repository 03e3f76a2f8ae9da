package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoRefreshToken   = errors.New("no refresh token held")
	ErrEmptyRefreshBody = errors.New("refresh response carried no token")
)

// NetworkError means no response was received
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("failed to send %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx response surfaced by Do
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("request failed (status %d): %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("request failed (status %d)", e.StatusCode)
}

// Message extracts the server's error text from a {"error": ...} or
// {"message": ...} body, falling back to the raw body
func (e *StatusError) Message() string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(e.Body))
}

// RefreshError means the access token could not be renewed. StatusCode is 0
// when the refresh endpoint was never reached.
type RefreshError struct {
	StatusCode int
	Err        error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("session refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// Rejected reports whether the backend refused the refresh token itself
func (e *RefreshError) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}
