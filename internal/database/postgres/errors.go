package postgres

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/dschema/internal/database"
	"github.com/koustreak/dschema/internal/errs"
)

// PostgreSQL SQLSTATE error codes (read-relevant only)
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassConnection     = "08"
	pgErrQueryCanceled    = "57014"
	pgErrAdminShutdown    = "57P01"
	pgErrInvalidPassword  = "28P01"
	pgErrInvalidAuthSpec  = "28000"
	pgErrInsufficientPriv = "42501"
	pgErrUndefinedTable   = "42P01"
	pgErrUndefinedColumn  = "42703"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if ctxErr := database.MapContextError(err, msg); ctxErr != nil {
		return ctxErr
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifySQLState(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	if pgconn.Timeout(err) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	// Connection-level errors (dial, TLS, auth handshake, dropped socket)
	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) || errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	// Everything else is raised client-side (scan/type coercion, protocol
	// misuse) and only affects the statement that produced it.
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// classifySQLState maps a SQLSTATE code to an ErrKind.
func classifySQLState(code string) errs.ErrKind {
	if len(code) >= 2 && code[:2] == pgClassConnection {
		return errs.ErrKindConnectionFailed
	}
	switch code {
	case pgErrAdminShutdown:
		return errs.ErrKindConnectionFailed
	case pgErrInvalidPassword, pgErrInvalidAuthSpec, pgErrInsufficientPriv:
		return errs.ErrKindPermissionDenied
	case pgErrQueryCanceled:
		return errs.ErrKindTimeout
	case pgErrUndefinedTable, pgErrUndefinedColumn:
		return errs.ErrKindNotFound
	default:
		return errs.ErrKindQueryFailed
	}
}
