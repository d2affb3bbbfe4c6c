// Package apperrors defines the error kinds this service enumerates:
// Conflict, InvalidTransition, and the general-purpose shapes every
// store and service surfaces to its caller.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the base interface for all application errors.
type AppError interface {
	error
	HTTPStatus() int
	Code() string
}

// ConflictError is raised when a unique constraint is violated, e.g.
// registering a journey_id that already exists.
type ConflictError struct {
	Resource string
	Field    string
	Value    string
}

func (e *ConflictError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("%s already exists with %s=%q", e.Resource, e.Field, e.Value)
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

func (e *ConflictError) HTTPStatus() int { return http.StatusConflict }
func (e *ConflictError) Code() string    { return "CONFLICT" }

// NewConflictError creates a new ConflictError.
func NewConflictError(resource, field, value string) *ConflictError {
	return &ConflictError{Resource: resource, Field: field, Value: value}
}

// InvalidTransitionError is raised when the Journey Monitor rejects a
// status change outside the permitted transition set.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid monitoring status transition: %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) HTTPStatus() int { return http.StatusConflict }
func (e *InvalidTransitionError) Code() string    { return "INVALID_TRANSITION" }

// NewInvalidTransitionError creates a new InvalidTransitionError.
func NewInvalidTransitionError(from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}

// NotFoundError represents a resource that was not found.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with ID %q not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) HTTPStatus() int { return http.StatusNotFound }
func (e *NotFoundError) Code() string    { return "NOT_FOUND" }

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var t *InvalidTransitionError
	return errors.As(err, &t)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}
