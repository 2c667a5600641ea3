package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
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

// Is matches on the error code so callers can write errors.Is(err, errors.ErrAlreadyFinalized.New()).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// StatusCode maps the error code to an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest, ErrValidation:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusForbidden
	case ErrForbidden:
		return http.StatusForbidden
	case ErrInvalidTransition, ErrAlreadyFinalized:
		return http.StatusConflict
	case ErrUnauthenticated:
		return http.StatusUnauthorized
	case ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrInvalidTransition
	ErrAlreadyFinalized
	ErrValidation
	ErrUnauthenticated
	ErrRateLimited
)

// New returns a bare error carrying only the code, for use as an errors.Is target.
func (c ErrorCode) New() *AppError {
	return &AppError{Code: c}
}

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "NotFound"
	case ErrBadRequest:
		return "BadRequest"
	case ErrUnauthorized:
		return "Unauthorized"
	case ErrForbidden:
		return "Forbidden"
	case ErrInternal:
		return "Internal"
	case ErrInvalidTransition:
		return "InvalidTransition"
	case ErrAlreadyFinalized:
		return "AlreadyFinalized"
	case ErrValidation:
		return "ValidationError"
	case ErrUnauthenticated:
		return "Unauthenticated"
	case ErrRateLimited:
		return "RateLimited"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// NotFound reports a missing entity or draft.
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

// Unauthorized reports that the acting role does not own the requested transition.
func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// Unauthorizedf is Unauthorized with a formatted message.
func Unauthorizedf(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: fmt.Sprintf(format, args...),
	}
}

// InvalidTransition names both the current status and the requested action or status.
func InvalidTransition(entity, current, requested string) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("%s: cannot %s from status %s", entity, requested, current),
	}
}

// Unauthenticated reports a request without a valid identity.
func Unauthenticated(message string) *AppError {
	return &AppError{Code: ErrUnauthenticated, Message: message}
}

func AlreadyFinalized(resource string) *AppError {
	return &AppError{
		Code:    ErrAlreadyFinalized,
		Message: fmt.Sprintf("%s is already finalized", resource),
	}
}

func Validation(message string, err error) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
		Err:     err,
	}
}

// Validationf is Validation with a formatted message.
func Validationf(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// CodeOf returns the code of the first AppError in the chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
