package domain

import "fmt"

// Error types for consistent error handling across the console.

// ErrUnauthorized indicates rejected credentials or an invalidated
// session. The message is surfaced verbatim to the operator when it
// originates from a login attempt.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrValidation indicates locally rejected input (e.g. the password
// policy); no network call was made.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrExternalService indicates a failure calling the freight backend.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the breaker toward the backend is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrBackendStatus carries a non-2xx backend response with its
// server-supplied message, so form handlers can render it inline.
type ErrBackendStatus struct {
	Status  int
	Message string
}

func (e *ErrBackendStatus) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned status %d", e.Status)
}
