package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error for handlers and callers.
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindBusinessLogic     Kind = "BUSINESS_LOGIC"
	KindConflict          Kind = "CONFLICT"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindOverDistribution  Kind = "OVER_DISTRIBUTION"
	KindNotFound          Kind = "NOT_FOUND"
	KindAuthorization     Kind = "AUTHORIZATION"
)

// Error is the single error type crossing service boundaries. Handlers map
// its Kind to an HTTP status; services wrap underlying causes in Err.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

func BusinessLogic(format string, args ...interface{}) *Error {
	return newf(KindBusinessLogic, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

func InsufficientStock(format string, args ...interface{}) *Error {
	return newf(KindInsufficientStock, format, args...)
}

func OverDistribution(format string, args ...interface{}) *Error {
	return newf(KindOverDistribution, format, args...)
}

func NotFound(resource string, id interface{}) *Error {
	return newf(KindNotFound, "%s %v not found", resource, id)
}

func Authorization(format string, args ...interface{}) *Error {
	return newf(KindAuthorization, format, args...)
}

// Wrap attaches a cause to an application error without losing the Kind.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err (or anything it wraps) carries the given Kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err, or "" for non-application errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// HTTPStatus maps an error to the status code handlers should respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindBusinessLogic, KindInsufficientStock, KindOverDistribution:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
