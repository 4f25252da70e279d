package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}
)

// Error implementations
func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

// Is lets errors.Is match the typed errors against their sentinels
func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPersistence wraps any failure of the conversation row store
	ErrPersistence = errors.New("persistence error")

	// ErrUpstream wraps any failure of the completion API
	ErrUpstream = errors.New("upstream error")
)

// Credential errors. Each one wraps ErrUnauthorized so handlers can treat
// them uniformly while still telling expiry apart from a bad token.
var (
	ErrMissingCredential   = fmt.Errorf("authorization token is missing: %w", ErrUnauthorized)
	ErrMalformedCredential = fmt.Errorf("invalid authorization header format: %w", ErrUnauthorized)
	ErrExpiredCredential   = fmt.Errorf("token expired: %w", ErrUnauthorized)
	ErrInvalidCredential   = fmt.Errorf("invalid token: %w", ErrUnauthorized)
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (conversation)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// CredentialMessage returns the user-visible message for a credential error.
// Returns an empty string if err is not a credential error.
func CredentialMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "Authorization token is missing"
	case errors.Is(err, ErrMalformedCredential):
		return "Invalid Authorization header format"
	case errors.Is(err, ErrExpiredCredential):
		return "Token expired"
	case errors.Is(err, ErrInvalidCredential), errors.Is(err, ErrUnauthorized):
		return "Invalid token"
	default:
		return ""
	}
}
