package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/koustreak/dschema/internal/database"
	"github.com/koustreak/dschema/internal/errs"
	"github.com/mattn/go-sqlite3"
)

// mapError translates go-sqlite3 errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if ctxErr := database.MapContextError(err, msg); ctxErr != nil {
		return ctxErr
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return errs.Wrap(classifyCode(sqErr.Code), fmt.Sprintf("%s: %s", msg, sqErr.Error()), err)
	}

	if errors.Is(err, sql.ErrConnDone) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// classifyCode maps a primary SQLite result code to ErrKind.
// Full list: https://www.sqlite.org/rescode.html
func classifyCode(code sqlite3.ErrNo) errs.ErrKind {
	switch code {
	case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrCorrupt, sqlite3.ErrIoErr:
		return errs.ErrKindConnectionFailed
	case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
		return errs.ErrKindPermissionDenied
	case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrInterrupt:
		return errs.ErrKindTimeout
	case sqlite3.ErrNotFound:
		return errs.ErrKindNotFound
	default:
		return errs.ErrKindQueryFailed
	}
}
