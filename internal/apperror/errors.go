package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can branch on it instead of matching messages.
type Kind string

const (
	// KindInvalidInput means a date/time or another request field was missing or unparseable.
	KindInvalidInput Kind = "invalid_input"

	// KindSlotConflict means the requested time range is already occupied.
	KindSlotConflict Kind = "slot_conflict"

	// KindUpstream means the calendar or LLM API failed, including credential problems.
	KindUpstream Kind = "upstream_failure"
)

// Error is a classified error. Err holds the cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidInput creates a new invalid input error
func InvalidInput(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// SlotConflict creates a new slot conflict error
func SlotConflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindSlotConflict, Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps err as an upstream failure. A nil err yields nil.
func Upstream(err error, message string) error {
	if err == nil {
		return nil
	}
	// Already classified errors keep their kind.
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// KindOf returns the kind of err. Unclassified errors are reported as upstream failures
// because every unclassified failure in this service comes from an external call.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUpstream
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// HTTPStatus maps a kind to the HTTP status code returned by the API.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindSlotConflict:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
