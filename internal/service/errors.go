package service

import (
	"errors"
	"fmt"
)

// Error kinds. Validation and authorization failures surface to the
// caller verbatim and must not be retried; transient store failures are
// safe to retry because every mutation is idempotent or upsert-based.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthorization
	KindNotFound
	// KindConflict is reserved. Duplicate edges and re-ratings resolve
	// as idempotent no-ops or upserts instead of erroring.
	KindConflict
	KindTransientStore
)

// Error is the error type returned by all service operations.
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

// Unwrap returns the wrapped cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError creates a validation error
func ValidationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// AuthorizationError creates an authorization error
func AuthorizationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError creates a not-found error
func NotFoundError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// StoreError wraps a backing-store failure as a transient error
func StoreError(op string, err error) *Error {
	return &Error{Kind: KindTransientStore, Message: op, Err: err}
}

// IsKind reports whether err is a service Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
