package database

import (
	"context"
	"errors"

	"github.com/koustreak/dschema/internal/errs"
)

// MapContextError translates context errors into *errs.Error. It returns nil
// when err is not a context error so drivers can fall through to their own
// native mapping.
func MapContextError(err error, msg string) *errs.Error {
	switch {
	case errors.Is(err, context.Canceled):
		return errs.Wrap(errs.ErrKindCancelled, msg, err)
	case errors.Is(err, context.DeadlineExceeded):
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	return nil
}

// --- Predicates re-exported for callers that only import database ---

// IsNotFound reports whether err represents a "no rows" result.
func IsNotFound(err error) bool { return errs.IsNotFound(err) }

// IsTimeout reports whether err was caused by a deadline.
func IsTimeout(err error) bool { return errs.IsTimeout(err) }

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool { return errs.IsConnectionFailed(err) }

// IsQueryFailed reports whether err is a SQL execution error.
func IsQueryFailed(err error) bool { return errs.IsQueryFailed(err) }
