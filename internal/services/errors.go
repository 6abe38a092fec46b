// Package services defines the business logic for the lead lifecycle.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed
// at the handler layer.
package services

import (
	"errors"
	"strings"
)

var (
	// ErrValidation is matched (via errors.Is) by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateEmail is returned when a lead with the same email is
	// already stored. It is derived from the database unique constraint.
	ErrDuplicateEmail = errors.New("a lead with this email already exists")

	// ErrLeadNotFound indicates that no lead exists with the requested id.
	ErrLeadNotFound = errors.New("lead not found")
)

// FieldError describes one failing input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is reports ErrValidation as a match so callers need not type-assert.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
