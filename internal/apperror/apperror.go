// Package apperror holds the tagged failure results returned by the auth core.
//
// Expected failures (bad credentials, revoked sessions, duplicates) are
// returned as *Error values carrying an HTTP-style code and a reason that is
// safe to show to the caller. Any other error reaching the transport layer is
// unexpected and maps to a generic 500.
package apperror

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindInternal       Kind = "internal"
)

type Error struct {
	Kind   Kind
	Code   int
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func New(kind Kind, code int, reason string) *Error {
	return &Error{Kind: kind, Code: code, Reason: reason}
}

func Validation(reason string) *Error {
	return New(KindValidation, http.StatusBadRequest, reason)
}

// Unprocessable : well-formed input that fails a policy check
func Unprocessable(reason string) *Error {
	return New(KindValidation, http.StatusUnprocessableEntity, reason)
}

func Authentication(reason string) *Error {
	return New(KindAuthentication, http.StatusUnauthorized, reason)
}

func Authorization(reason string) *Error {
	return New(KindAuthorization, http.StatusForbidden, reason)
}

func NotFound(reason string) *Error {
	return New(KindNotFound, http.StatusNotFound, reason)
}

func Conflict(reason string) *Error {
	return New(KindConflict, http.StatusConflict, reason)
}

func Internal(reason string) *Error {
	return New(KindInternal, http.StatusInternalServerError, reason)
}

// As unwraps err into an *Error when it is one of the expected failures.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus returns the status for err; unexpected errors become 500.
func HTTPStatus(err error) int {
	if appErr, ok := As(err); ok && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// PublicReason never leaks the text of unexpected errors.
func PublicReason(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Reason
	}
	return "internal server error"
}

func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
