package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is matched by every shop resolution or signature failure
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnsupportedTopic is returned when no handler accepts a webhook topic
	ErrUnsupportedTopic = errors.New("unsupported webhook topic")
	// ErrShopNotFound is returned when a shop is not registered
	ErrShopNotFound = errors.New("shop not found")
)

// AuthError describes why a request could not be attributed to a shop
type AuthError struct {
	Reason string
	Err    error
}

// NewAuthError creates an AuthError with an optional cause
func NewAuthError(reason string, err error) *AuthError {
	return &AuthError{Reason: reason, Err: err}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unauthorized: %s: %v", e.Reason, e.Err)
	}
	return "unauthorized: " + e.Reason
}

// Unwrap exposes the cause to errors.Is and errors.As
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrUnauthorized) match any AuthError
func (e *AuthError) Is(target error) bool {
	return target == ErrUnauthorized
}
