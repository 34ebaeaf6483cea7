package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

// ValidationError reports bad or missing caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing or non-owned record.
type NotFoundError struct {
	Resource string
	ID       string
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AuthorizationError reports a missing, invalid or insufficient credential.
// Forbidden distinguishes a valid caller lacking a permission from an
// unauthenticated one.
type AuthorizationError struct {
	Reason    string
	Forbidden bool
}

func Unauthorized(reason string) *AuthorizationError {
	return &AuthorizationError{Reason: reason}
}

func Forbidden(reason string) *AuthorizationError {
	return &AuthorizationError{Reason: reason, Forbidden: true}
}

func (e *AuthorizationError) Error() string {
	if e.Forbidden {
		return "forbidden: " + e.Reason
	}
	return "unauthorized: " + e.Reason
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}
