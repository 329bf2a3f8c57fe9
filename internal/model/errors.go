// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrConflict           = errors.New("conflict")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("invalid argument: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("invalid argument: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
// It returns nil when errs is empty.
func NewValidationErrors(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

// IsSoft reports whether err is an expected, degradable failure rather than a bug.
func IsSoft(err error) bool {
	return errors.Is(err, ErrBackendUnavailable) || errors.Is(err, ErrNotFound)
}

// UserMessage returns a human-readable message derived from the error kind.
// Raw backend error strings are never exposed.
func UserMessage(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve) && len(ve.Errors) > 0:
		return fmt.Sprintf("Please check the %s field: %s.", ve.Errors[0].Field, ve.Errors[0].Message)
	case errors.Is(err, ErrInvalidArgument):
		return "Some of the submitted information is invalid. Please review it and try again."
	case errors.Is(err, ErrNotFound):
		return "The requested item could not be found."
	case errors.Is(err, ErrConflict):
		return "This item already exists."
	case errors.Is(err, ErrBackendUnavailable):
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "Something went wrong. Please try again later."
	}
}
