// Package apperr defines the typed error kinds of the sync engine's error
// handling design: each kind maps to exactly one HTTP status, and the HTTP
// layer is the only place that performs that translation.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the error kinds enumerated by the error handling design.
type Kind string

const (
	KindAuth                Kind = "auth_error"
	KindRateLimited         Kind = "rate_limited"
	KindPlatformTransient   Kind = "platform_transient"
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindDataIntegrity       Kind = "data_integrity"
	KindMissingPlatformData Kind = "missing_platform_data"
)

// Error is a typed application error carrying a Kind and an optional
// wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus returns the status code the HTTP layer should translate this
// error kind to — the only place in the engine that performs this mapping.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindAuth:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindPlatformTransient:
		return http.StatusBadGateway
	case KindValidation, KindMissingPlatformData:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindDataIntegrity:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Auth(message string, cause error) *Error              { return newError(KindAuth, message, cause) }
func RateLimited(message string, cause error) *Error       { return newError(KindRateLimited, message, cause) }
func PlatformTransient(message string, cause error) *Error { return newError(KindPlatformTransient, message, cause) }
func Validation(message string) *Error                     { return newError(KindValidation, message, nil) }
func NotFound(message string) *Error                       { return newError(KindNotFound, message, nil) }
func Conflict(message string) *Error                       { return newError(KindConflict, message, nil) }
func DataIntegrity(message string, cause error) *Error     { return newError(KindDataIntegrity, message, cause) }
func MissingPlatformData(message string) *Error            { return newError(KindMissingPlatformData, message, nil) }

// KindOf extracts the Kind of err if it is (or wraps) an *Error, and
// whether one was found.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
