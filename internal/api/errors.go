package api

import (
	"errors"
	"fmt"
)

// AuthError indicates the session is missing or expired (HTTP 401).
// Callers must stop retrying until a new login succeeds.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication required"
	}
	return fmt.Sprintf("authentication required: %s", e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an
// AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// ConflictError indicates the backend rejected a mutation with HTTP
// 409, for example a duplicate invite code. Message carries the
// server-provided explanation verbatim.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return "conflict"
	}
	return e.Message
}

// IsConflict reports whether err (or any error in its chain) is a
// ConflictError.
func IsConflict(err error) bool {
	var conflictErr *ConflictError
	return errors.As(err, &conflictErr)
}

// RequestError is any other non-2xx response, carrying the status code
// and the server's message when one was provided.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}
