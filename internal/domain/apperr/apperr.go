// Package apperr defines the error taxonomy shared by the domain services.
//
// Services return *Error values classified by Kind; transport layers map the
// kind to a status code without inspecting messages.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind classifies a domain failure.
type Kind uint8

const (
	// Internal is the kind of every error that is not an *Error.
	Internal Kind = iota
	NotFound
	Conflict
	InvalidState
	Forbidden
	Validation
	Unauthorized
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case Conflict:
		return "Conflict"
	case InvalidState:
		return "InvalidState"
	case Forbidden:
		return "Forbidden"
	case Validation:
		return "Validation"
	case Unauthorized:
		return "Unauthorized"
	default:
		return "Internal"
	}
}

// Kind sentinels. errors.Is(err, ErrForbidden) reports whether err carries an
// *Error of that kind regardless of its message.
var (
	ErrNotFound     = &Error{Kind: NotFound}
	ErrConflict     = &Error{Kind: Conflict}
	ErrInvalidState = &Error{Kind: InvalidState}
	ErrForbidden    = &Error{Kind: Forbidden}
	ErrValidation   = &Error{Kind: Validation}
	ErrUnauthorized = &Error{Kind: Unauthorized}
)

// Error is a classified domain error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// New returns an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind, keeping it in the chain.
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches kind sentinels (an *Error without a message).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message returns the client-facing message of err. Internal errors never
// leak their text.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == Internal {
		return "internal error"
	}
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Msg
}
