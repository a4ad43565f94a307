package mysql

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/dschema/internal/database"
	"github.com/koustreak/dschema/internal/errs"
)

// MySQL error numbers (read-relevant only)
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDBAccessDenied    = 1044
	errAccessDenied      = 1045
	errUnknownDatabase   = 1049
	errTooManyConns      = 1040
	errUserTooManyConns  = 1203
	errServerShutdown    = 1053
	errTableAccessDenied = 1142
	errColAccessDenied   = 1143
	errBadField          = 1054
	errNoSuchTable       = 1146
	errQueryInterrupted  = 1317
	errExecTimeExceeded  = 3024
	errConnRefused       = 2003
	errServerGone        = 2006
	errServerLost        = 2013
)

// mapError translates go-sql-driver/mysql errors into *errs.Error.
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

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, gomysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	// Remaining errors come from database/sql itself (scan conversion,
	// column count mismatch) and only affect one statement.
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// classifyMySQLCode maps MySQL error numbers to ErrKind.
func classifyMySQLCode(code uint16) errs.ErrKind {
	switch code {
	case errUnknownDatabase, errTooManyConns, errUserTooManyConns,
		errServerShutdown, errConnRefused, errServerGone, errServerLost:
		return errs.ErrKindConnectionFailed
	case errDBAccessDenied, errAccessDenied, errTableAccessDenied, errColAccessDenied:
		return errs.ErrKindPermissionDenied
	case errQueryInterrupted, errExecTimeExceeded:
		return errs.ErrKindTimeout
	case errBadField, errNoSuchTable:
		return errs.ErrKindNotFound
	default:
		return errs.ErrKindQueryFailed
	}
}
