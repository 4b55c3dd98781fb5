// Package apperrors declares the error-kind taxonomy shared by every
// component and both API bindings (HTTP, MCP). Each kind is distinguishable
// at the API boundary and maps to one HTTP status; see pkg/api's error
// mapper for the HTTP translation and pkg/api's MCP tool handlers for the MCP
// translation.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind is a distinguishable error category.
type Kind string

const (
	KindValidation                 Kind = "validation"
	KindUnauthenticated            Kind = "unauthenticated"
	KindForbidden                  Kind = "forbidden"
	KindNotFound                   Kind = "not_found"
	KindConflict                   Kind = "conflict"
	KindAlreadyGlobal              Kind = "already_global"
	KindSessionAlreadyDisconnected Kind = "session_already_disconnected"
	KindTokenExpired               Kind = "token_expired"
	KindInvalidToken               Kind = "invalid_token"
	KindSessionIDMismatch          Kind = "session_id_mismatch"
	KindSessionNotFound            Kind = "session_not_found"
	KindStorageUnavailable         Kind = "storage_unavailable"
	KindProviderUnavailable        Kind = "provider_unavailable"
	KindProviderTimeout            Kind = "provider_timeout"
	KindRateLimited                Kind = "rate_limited"
	KindInternal                   Kind = "internal"
)

// Error is the typed application error carried across component
// boundaries. Message is safe to show to a caller; Field is optional
// structured context (e.g. a validation field path).
type Error struct {
	Kind    Kind
	Message string
	Field   string // set for KindValidation
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is makes errors.Is(err, apperrors.ErrNotFound) (and the other sentinel
// values below) match any *Error sharing the same Kind, regardless of
// Message/Field/cause.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	return ok && te.Kind == e.Kind
}

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind, preserving cause for
// errors.Is/As traversal without leaking it into Message.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Validation constructs a field-scoped validation error.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// KindOf extracts the Kind of err, defaulting to KindInternal when err does
// not carry one.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

var (
	ErrNotFound            = New(KindNotFound, "entity not found")
	ErrConflict            = New(KindConflict, "conflicting state")
	ErrAlreadyGlobal       = New(KindAlreadyGlobal, "source is already global")
	ErrStorageUnavailable  = New(KindStorageUnavailable, "storage unavailable")
	ErrProviderUnavailable = New(KindProviderUnavailable, "provider unavailable")
	ErrProviderTimeout     = New(KindProviderTimeout, "provider call timed out")
	ErrRateLimited         = New(KindRateLimited, "rate limited")
	ErrForbidden           = New(KindForbidden, "forbidden")
	ErrUnauthenticated     = New(KindUnauthenticated, "unauthenticated")
)
