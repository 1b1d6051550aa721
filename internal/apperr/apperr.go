// Package apperr defines the domain error taxonomy returned by services.
//
// Handlers translate an *Error into a response using its Kind. Any other
// error reaching the boundary is treated as an internal failure.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is the machine-readable category of a domain failure.
type Kind string

const (
	KindValidation       Kind = "VALIDATION_ERROR"
	KindDuplicate        Kind = "DUPLICATE_IDENTITY"
	KindNotFound         Kind = "NOT_FOUND"
	KindPermissionDenied Kind = "PERMISSION_DENIED"
	KindInvalidReference Kind = "INVALID_REFERENCE"
	KindAuthFailure      Kind = "AUTH_FAILURE"
	KindAccountInactive  Kind = "ACCOUNT_INACTIVE"
	KindAccountDeleted   Kind = "ACCOUNT_DELETED"
	KindInternal         Kind = "INTERNAL"
)

// Error is a domain failure with a kind, a human-readable message and
// optional per-field details.
type Error struct {
	Kind    Kind
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation reports malformed input. details is usually a field -> message map.
func Validation(message string, details interface{}) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

// Missing reports required fields that were absent from the input.
func Missing(fields ...string) *Error {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	return &Error{
		Kind:    KindValidation,
		Message: "Missing required fields",
		Details: map[string]string{
			"missing_fields": "Missing required fields: " + strings.Join(sorted, ", "),
		},
	}
}

func Duplicate(message string) *Error {
	return &Error{Kind: KindDuplicate, Message: message}
}

// NotFound reports that resource (e.g. "Product") does not resolve.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found."}
}

func PermissionDenied() *Error {
	return &Error{Kind: KindPermissionDenied, Message: "Permission denied."}
}

// InvalidReference reports that field points at a record that does not exist.
func InvalidReference(field, message string) *Error {
	return &Error{
		Kind:    KindInvalidReference,
		Message: message,
		Details: map[string]string{field: message},
	}
}

// AuthFailure is deliberately vague so callers cannot tell which factor failed.
func AuthFailure() *Error {
	return &Error{Kind: KindAuthFailure, Message: "Invalid email or password."}
}

func InvalidToken() *Error {
	return &Error{Kind: KindAuthFailure, Message: "Token is invalid or expired."}
}

func AccountInactive() *Error {
	return &Error{Kind: KindAccountInactive, Message: "User account is inactive."}
}

func AccountDeleted() *Error {
	return &Error{Kind: KindAccountDeleted, Message: "User account has been deleted."}
}

// Internal wraps an unexpected lower-layer failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
