// Package errors provides application-level error types and utilities.
// It defines the error kinds a ticket store caller can observe: validation,
// not found, overloaded, disconnected and internal errors.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation_error"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeOverloaded   ErrorType = "overloaded"
	ErrorTypeDisconnected ErrorType = "disconnected"
	ErrorTypeInternal     ErrorType = "internal_error"
)

// AppError represents an application error with additional context
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func newAppError(t ErrorType, message string, details []string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:    t,
		Message: message,
		Details: detail,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeValidation, message, details)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeNotFound, message, details)
}

// NewOverloadedError is returned when a fail-fast transport rejects a request
// because it is at capacity. The request was not accepted; retrying is up to the caller.
func NewOverloadedError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeOverloaded, message, details)
}

// NewDisconnectedError is returned when the store actor is gone and a reply
// will never arrive. It is terminal for the handle that observed it.
func NewDisconnectedError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeDisconnected, message, details)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeInternal, message, details)
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func isType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsOverloadedError checks if the error is an overloaded error
func IsOverloadedError(err error) bool {
	return isType(err, ErrorTypeOverloaded)
}

// IsDisconnectedError checks if the error is a disconnected error
func IsDisconnectedError(err error) bool {
	return isType(err, ErrorTypeDisconnected)
}

// IsInternalError checks if the error is an internal error
func IsInternalError(err error) bool {
	return isType(err, ErrorTypeInternal)
}
