// Package errs provides the unified error type used across dschema.
//
// Every subsystem (database drivers, reflectors, the profiler, sketches,
// file stores) wraps its native errors into *errs.Error before returning
// them. Callers use the Is* predicates to decide what is fatal and what is
// merely "data not computed" without importing driver packages.
//
// Usage:
//
//	// In a driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindTimeout, "query timed out", pgErr)
//
//	// In the profiler, decide whether a failure unwinds the run:
//	if errs.IsConnectionFailed(err) {
//	    return err
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing backend-specific codes.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no rows, no object, unknown table/column
	ErrKindConnectionFailed         // cannot reach the backend; fatal for a profiling run
	ErrKindTimeout                  // deadline exceeded inside the backend
	ErrKindQueryFailed              // SQL or storage operation error
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied / auth failure
	ErrKindTableCount               // row count failed; fatal for one table only
	ErrKindColumnStat               // one column statistic could not be computed
	ErrKindSketchMismatch           // sketches built with incompatible parameters
	ErrKindCancelled                // the caller cancelled the run
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindTableCount:
		return "table_count"
	case ErrKindColumnStat:
		return "column_stat"
	case ErrKindSketchMismatch:
		return "sketch_mismatch"
	case ErrKindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all dschema subsystems.
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

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a backend deadline.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a backend operation failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsTableCount reports whether err is a failed row count for one table.
func IsTableCount(err error) bool {
	return KindOf(err) == ErrKindTableCount
}

// IsColumnStat reports whether err is a single failed column statistic.
func IsColumnStat(err error) bool {
	return KindOf(err) == ErrKindColumnStat
}

// IsSketchMismatch reports whether err came from comparing incompatible sketches.
func IsSketchMismatch(err error) bool {
	return KindOf(err) == ErrKindSketchMismatch
}

// IsCancelled reports whether err is a caller cancellation.
func IsCancelled(err error) bool {
	return KindOf(err) == ErrKindCancelled
}

// KindOf extracts the ErrKind of the outermost *Error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
