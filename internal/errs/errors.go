// Package errs provides the error types used across sqlbridge.
//
// Errors come in two tiers:
//
//   - *DatabaseError is a recoverable, query-level failure reported by the
//     database engine (constraint violation, syntax error, etc.). It carries the
//     provider's error code so callers can branch on it.
//   - *Error is everything else: driver faults, cancelled contexts, misuse of
//     a closed transaction. These are not actionable in terms of query
//     semantics and should abort the in-flight operation.
//
// Usage:
//
//	// In an adapter, wrap a fault:
//	return errs.Wrap(errs.ErrKindDriver, "query failed", err)
//
//	// In a caller, branch on the tier:
//	if dbErr, ok := errs.AsDatabaseError(err); ok {
//	    log.Printf("constraint %d: %s", dbErr.Code, dbErr.Message)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises a fatal error without exposing driver-specific codes.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // unknown transaction id, missing object
	ErrKindConnectionFailed         // cannot reach the backend
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindDriver                   // driver error without a recognisable code
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied / auth failure
	ErrKindClosed                   // transaction or context already used up
	ErrKindConversion               // a row value could not be normalised
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindDriver:
		return "driver_fault"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindClosed:
		return "closed"
	case ErrKindConversion:
		return "conversion_failed"
	default:
		return "unknown"
	}
}

// Error is the fatal-tier error returned by sqlbridge subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by kind and message so that errors.Is works
// against ErrTransactionClosed and friends even after re-wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// --- Sentinels ---

var (
	// ErrTransactionClosed is returned by any operation on a transaction that
	// has already been committed or rolled back.
	ErrTransactionClosed = New(ErrKindClosed, "transaction already closed")

	// ErrContextConsumed is returned when StartTransaction is called a second
	// time on the same transaction context.
	ErrContextConsumed = New(ErrKindClosed, "transaction context already used")

	// ErrAdapterClosed is returned by operations on a disposed adapter.
	ErrAdapterClosed = New(ErrKindClosed, "adapter closed")
)

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return kindOf(err) == ErrKindConnectionFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return kindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return kindOf(err) == ErrKindPermissionDenied
}

// IsClosed reports whether err comes from using a finished transaction,
// a consumed context or a disposed adapter.
func IsClosed(err error) bool {
	return kindOf(err) == ErrKindClosed
}

// IsFatal reports whether err belongs to the fatal tier, i.e. it is non-nil
// and is not a *DatabaseError.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	_, ok := AsDatabaseError(err)
	return !ok
}

// kindOf extracts the ErrKind from any error in the chain.
func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
