package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error so the HTTP boundary can map it to a status code
// without inspecting message text.
type Kind int

const (
	KindValidation Kind = iota // malformed or missing input
	KindNotFound               // unknown farmer/delivery/payment/user id
	KindAccessDenied           // region mismatch or missing permission
	KindConflict               // already-claimed delivery, invalid state transition
	KindStore                  // underlying persistence failure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindConflict:
		return "conflict"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Error carries a kind plus a human-readable message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func AccessDenied(format string, args ...interface{}) error {
	return &Error{Kind: KindAccessDenied, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Store wraps a persistence failure. The cause is kept for logs; callers see
// the message only.
func Store(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindStore, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or KindStore for untyped errors so that
// unexpected failures are never mistaken for client mistakes.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

func IsValidation(err error) bool   { return is(err, KindValidation) }
func IsNotFound(err error) bool     { return is(err, KindNotFound) }
func IsAccessDenied(err error) bool { return is(err, KindAccessDenied) }
func IsConflict(err error) bool     { return is(err, KindConflict) }
func IsStore(err error) bool        { return is(err, KindStore) }

func is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
