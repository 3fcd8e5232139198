package domain

import (
	"fmt"
	"net/http"
)

// Kind identifies the class of a domain failure.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindValidation
	KindInternal
)

// Error is the failure type passed from the repository up to the handlers.
// It carries no wrapped cause.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

// NotFound reports that the addressed entity does not exist.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation reports a caller supplied field that failed a check.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// Internal reports an unrecoverable lower-layer failure.
func Internal(format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return "resource not found: " + e.Message
	case KindValidation:
		return fmt.Sprintf("validation for field %s, reason = %s", e.Field, e.Message)
	default:
		return "internal error. reason = " + e.Message
	}
}

// StatusCode maps the error kind to an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Is matches errors of the same kind, so errors.Is(err, &Error{Kind: KindNotFound})
// works without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrValidation = &Error{Kind: KindValidation}
	ErrInternal   = &Error{Kind: KindInternal}
)
