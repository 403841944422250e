// Package apperror defines the error taxonomy shared by services and
// handlers.  Services return *Error values; the HTTP layer turns them
// into a status code and a client-safe message.  Anything that is not an
// *Error is reported as an internal error and its detail is only logged.
package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

// Error carries a kind, the HTTP status to use and a message that is
// safe to show to clients.  Cause is kept for logging only.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on kind and message so sentinel values work with errors.Is
// even after Wrap attached a cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}

func New(kind Kind, status int, msg string) *Error {
	return &Error{Kind: kind, Status: status, Message: msg}
}

func Validation(msg string) *Error     { return New(KindValidation, http.StatusBadRequest, msg) }
func Unauthenticated(msg string) *Error { return New(KindAuthentication, http.StatusUnauthorized, msg) }
func Forbidden(msg string) *Error      { return New(KindAuthorization, http.StatusForbidden, msg) }
func NotFound(msg string) *Error       { return New(KindNotFound, http.StatusNotFound, msg) }

// Conflict uses 409; booking date clashes use ConflictBadRequest since
// the public API reports them as 400.
func Conflict(msg string) *Error           { return New(KindConflict, http.StatusConflict, msg) }
func ConflictBadRequest(msg string) *Error { return New(KindConflict, http.StatusBadRequest, msg) }

// Internal wraps an unexpected failure behind a generic message.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: "internal server error", Cause: cause}
}

// From extracts an *Error from err, falling back to Internal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
