package store

import (
	"errors"
	"fmt"
)

// Kind classifies a store or domain failure. Every error crossing the
// service boundary carries one.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindNotAuthorized Kind = "not_authorized"
	KindValidation    Kind = "validation_failed"
	KindConflict      Kind = "conflict"
	KindUnavailable   Kind = "unavailable"
)

// Error is a typed failure with enough structure for the caller to render a
// user-facing message: kind, human message, and the offending field when the
// failure is a validation one.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NotAuthorized(format string, args ...any) error {
	return &Error{Kind: KindNotAuthorized, Message: fmt.Sprintf(format, args...)}
}

func Invalid(field, format string, args ...any) error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Unavailable(cause error) error {
	return &Error{Kind: KindUnavailable, Message: "store unavailable", cause: cause}
}

// KindOf extracts the kind of err, or "" for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsNotFound(err error) bool      { return KindOf(err) == KindNotFound }
func IsNotAuthorized(err error) bool { return KindOf(err) == KindNotAuthorized }
func IsValidation(err error) bool    { return KindOf(err) == KindValidation }
func IsConflict(err error) bool      { return KindOf(err) == KindConflict }
func IsUnavailable(err error) bool   { return KindOf(err) == KindUnavailable }
