package errors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
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

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrInternal
	ErrDownstream
	ErrTerminalState
	ErrInvalidTransition
	ErrStaleState
)

// NotFound marks a missing appointment, policy or service type.
func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// Downstream wraps a store or collaborator failure.
func Downstream(op string, err error) *AppError {
	return &AppError{
		Code:    ErrDownstream,
		Message: fmt.Sprintf("%s failed", op),
		Err:     err,
	}
}

// TerminalState marks an attempted transition out of a terminal status.
func TerminalState(from string) *AppError {
	return &AppError{
		Code:    ErrTerminalState,
		Message: fmt.Sprintf("appointment is in terminal status %q", from),
	}
}

// InvalidTransition marks a target status not reachable from the source.
func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %q to %q", from, to),
	}
}

// StaleState marks a conditional write that lost the race: another caller
// already moved the appointment past the expected status. Callers may
// refetch and retry.
func StaleState(id uuid.UUID, expected string) *AppError {
	return &AppError{
		Code:    ErrStaleState,
		Message: fmt.Sprintf("appointment %s is no longer in status %q", id, expected),
	}
}

// CodeOf extracts the ErrorCode from err, or ErrInternal when err is not an
// AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

func IsNotFound(err error) bool          { return CodeOf(err) == ErrNotFound }
func IsStaleState(err error) bool        { return CodeOf(err) == ErrStaleState }
func IsTerminalState(err error) bool     { return CodeOf(err) == ErrTerminalState }
func IsInvalidTransition(err error) bool { return CodeOf(err) == ErrInvalidTransition }
