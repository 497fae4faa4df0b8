package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// ErrValidation marks a form that failed local validation. It never reaches the provider.
	ErrValidation = errors.New("validation failed")
	// ErrMissingIdentity marks a submission without a subject to verify against.
	ErrMissingIdentity = errors.New("missing identity")
	// ErrRemoteVerification marks a code rejected (or not checked) by the auth provider.
	ErrRemoteVerification = errors.New("remote verification failed")
)

// ProviderError is an error reported by the external authentication provider.
// Message is the provider's human-readable text and may be empty.
type ProviderError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("auth provider: %s", e.Message)
	case e.Err != nil:
		return fmt.Sprintf("auth provider: %v", e.Err)
	default:
		return fmt.Sprintf("auth provider: status %d", e.Status)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }
