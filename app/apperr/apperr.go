// Package apperr holds the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind int

const (
	Internal Kind = iota
	InvalidCredentials
	Unauthenticated
	Forbidden
	NotFound
	ValidationFailed
	Conflict
	StorageError
)

func (k Kind) String() string {
	switch k {
	case InvalidCredentials:
		return "invalid_credentials"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case ValidationFailed:
		return "validation_failed"
	case Conflict:
		return "conflict"
	case StorageError:
		return "storage_error"
	}
	return "internal"
}

// Error is a classified failure. Message is safe to show to the caller; Err
// is the underlying cause and is only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so errors.Is(err, apperr.ErrForbidden) works for any
// forbidden error.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind && t.Message == "" && t.Err == nil
	}
	return false
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidCredentials = &Error{Kind: InvalidCredentials}
	ErrUnauthenticated    = &Error{Kind: Unauthenticated}
	ErrForbidden          = &Error{Kind: Forbidden}
	ErrNotFound           = &Error{Kind: NotFound}
	ErrValidation         = &Error{Kind: ValidationFailed}
	ErrConflict           = &Error{Kind: Conflict}
	ErrStorage            = &Error{Kind: StorageError}
	ErrInternal           = &Error{Kind: Internal}
)

// Messages shown for kinds whose details must not leak.
const (
	MsgInvalidCredentials = "Invalid username or password."
	MsgForbidden          = "You don't have permission to access this resource."
	MsgUnauthenticated    = "Please log in to access this resource."
	MsgInternal           = "We're experiencing technical difficulties. Please try again later."
)

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error { return New(ValidationFailed, msg) }

func Conflictf(format string, args ...any) *Error {
	return New(Conflict, fmt.Sprintf(format, args...))
}

func Forbid() *Error { return New(Forbidden, MsgForbidden) }

func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

func BadCredentials() *Error { return New(InvalidCredentials, MsgInvalidCredentials) }

func Internalf(err error, format string, args ...any) *Error {
	return Wrap(Internal, fmt.Sprintf(format, args...), err)
}

func Storage(err error, msg string) *Error { return Wrap(StorageError, msg, err) }

// KindOf classifies err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Status maps a kind to its HTTP status code.
func Status(k Kind) int {
	switch k {
	case InvalidCredentials, Unauthenticated:
		return fiber.StatusUnauthorized
	case Forbidden:
		return fiber.StatusForbidden
	case NotFound:
		return fiber.StatusNotFound
	case ValidationFailed:
		return fiber.StatusBadRequest
	case Conflict:
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// PublicMessage returns the text that may be sent to a client for err.
// Internal and storage failures always get the opaque message.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return MsgInternal
	}
	switch e.Kind {
	case Internal, StorageError:
		return MsgInternal
	case Forbidden:
		return MsgForbidden
	case InvalidCredentials:
		return MsgInvalidCredentials
	case Unauthenticated:
		return MsgUnauthenticated
	}
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Loggable reports whether err should be logged server-side.
func Loggable(err error) bool {
	k := KindOf(err)
	return k == Internal || k == StorageError
}
