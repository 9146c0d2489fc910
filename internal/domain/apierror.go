package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed classification every failure crossing the client
// boundary carries. Tool callers receive the kind verbatim as the error code.
type ErrorKind string

const (
	ErrAuthFailed        ErrorKind = "AUTH_FAILED"
	ErrTokenExpired      ErrorKind = "TOKEN_EXPIRED"
	ErrNotFound          ErrorKind = "NOT_FOUND"
	ErrValidation        ErrorKind = "VALIDATION_ERROR"
	ErrDuplicateCode     ErrorKind = "DUPLICATE_CODE"
	ErrDependencyMissing ErrorKind = "DEPENDENCY_MISSING"
	ErrRateLimited       ErrorKind = "RATE_LIMITED"
	ErrServer            ErrorKind = "SERVER_ERROR"
	ErrNetwork           ErrorKind = "NETWORK_ERROR"
)

// Retryable reports whether the request executor may re-attempt an operation
// that failed with this kind.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrAuthFailed, ErrTokenExpired, ErrRateLimited, ErrServer, ErrNetwork:
		return true
	default:
		return false
	}
}

// APIError is the single error type the authenticated-access core surfaces.
// Raw transport errors never cross the component boundary unwrapped.
type APIError struct {
	Kind    ErrorKind
	Status  int // HTTP status when one was observed, 0 otherwise
	Message string
	cause   error
}

// NewAPIError builds a classified error.
func NewAPIError(kind ErrorKind, status int, message string) *APIError {
	return &APIError{Kind: kind, Status: status, Message: message}
}

// WrapAPIError classifies an underlying error while preserving it for
// errors.Is/As chains.
func WrapAPIError(kind ErrorKind, message string, cause error) *APIError {
	return &APIError{Kind: kind, Message: message, cause: cause}
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error { return e.cause }

// Retryable reports the retry-eligibility bit of the classification.
func (e *APIError) Retryable() bool { return e.Kind.Retryable() }

// AsAPIError extracts the classified error from a chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
