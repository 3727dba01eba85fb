package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure. Handlers map kinds to HTTP statuses and
// stable user-facing messages; the wrapped cause is for server-side logs only.
type Kind int

const (
	KindInternal Kind = iota
	KindConflict
	KindNotFound
	KindInvalidInput
	KindForbidden
	KindInvalidState
	KindIntegrity
	KindUnavailable
)

// Error carries a kind, a stable user-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error     { return newf(KindConflict, format, args...) }
func NotFound(format string, args ...any) *Error     { return newf(KindNotFound, format, args...) }
func InvalidInput(format string, args ...any) *Error { return newf(KindInvalidInput, format, args...) }
func Forbidden(format string, args ...any) *Error    { return newf(KindForbidden, format, args...) }
func InvalidState(format string, args ...any) *Error { return newf(KindInvalidState, format, args...) }
func Integrity(format string, args ...any) *Error    { return newf(KindIntegrity, format, args...) }
func Unavailable(format string, args ...any) *Error  { return newf(KindUnavailable, format, args...) }

// Internal wraps an unexpected error behind a generic message so internals are
// never leaked to callers.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "operation failed, please try again", Err: err}
}

// KindOf extracts the Kind from an error chain, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the stable user-facing message for an error chain.
// Unclassified errors collapse to the generic internal message.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "operation failed, please try again"
}

// HTTPStatus maps an error chain to an HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidState:
		return http.StatusUnprocessableEntity
	case KindIntegrity:
		return http.StatusBadRequest
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Is reports whether the error chain carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
