package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found, or exists but is not visible
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeValidation indicates invalid input data
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeInvalidCoordinates indicates a malformed path, exceeded depth or a scope mismatch
	ErrorTypeInvalidCoordinates ErrorType = "invalid_coordinates"
	// ErrorTypeInvalidMove indicates a move/copy target that would break the tree
	ErrorTypeInvalidMove ErrorType = "invalid_move"
	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeUnauthorized indicates authentication failure
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	// ErrorTypeForbidden indicates insufficient permissions
	ErrorTypeForbidden ErrorType = "forbidden"
	// ErrorTypeOperationTooLarge indicates an operation touching more rows than allowed
	ErrorTypeOperationTooLarge ErrorType = "operation_too_large"
	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeMethodNotAllowed indicates an unsupported HTTP method
	ErrorTypeMethodNotAllowed ErrorType = "method_not_allowed"
	// ErrorTypeExternal indicates an external service error
	ErrorTypeExternal ErrorType = "external"
)

// AppError is the base error type for application errors
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFoundf creates a not found error with formatting
func NotFoundf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// Validation creates a validation error
func Validation(message string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// Validationf creates a validation error with formatting
func Validationf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapValidation wraps an error as a validation error
func WrapValidation(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Err:     err,
	}
}

// InvalidCoordinatesf creates an invalid coordinates error with formatting
func InvalidCoordinatesf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeInvalidCoordinates,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapInvalidCoordinates wraps an error as an invalid coordinates error
func WrapInvalidCoordinates(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInvalidCoordinates,
		Message: message,
		Err:     err,
	}
}

// InvalidMovef creates an invalid move error with formatting
func InvalidMovef(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeInvalidMove,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapInvalidMove wraps an error as an invalid move error
func WrapInvalidMove(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInvalidMove,
		Message: message,
		Err:     err,
	}
}

// Conflictf creates a conflict error with formatting
func Conflictf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: fmt.Sprintf(format, args...),
	}
}

// OperationTooLargef creates an operation too large error with formatting
func OperationTooLargef(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeOperationTooLarge,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) error {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// Forbidden creates a permission denied error
func Forbidden(message string) error {
	return &AppError{
		Type:    ErrorTypeForbidden,
		Message: message,
	}
}

// MethodNotAllowed creates a method not allowed error
func MethodNotAllowed(method string) error {
	return &AppError{
		Type:    ErrorTypeMethodNotAllowed,
		Message: fmt.Sprintf("method %s not allowed", method),
	}
}

// WrapExternal wraps an error as an external service error
func WrapExternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// GetType returns the error type of an error
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// Is reports whether err carries the given error type
func Is(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	return GetType(err) == errorType
}

// Passthrough keeps typed application errors as they are and wraps anything else as internal
func Passthrough(message string, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return WrapInternal(message, err)
}
