package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"testing"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/dschema/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"no rows", sql.ErrNoRows, errs.ErrKindNotFound},
		{"cancelled", context.Canceled, errs.ErrKindCancelled},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), errs.ErrKindTimeout},
		{"bad conn", driver.ErrBadConn, errs.ErrKindConnectionFailed},
		{"invalid conn", gomysql.ErrInvalidConn, errs.ErrKindConnectionFailed},
		{"access denied", &gomysql.MySQLError{Number: 1045, Message: "denied"}, errs.ErrKindPermissionDenied},
		{"server gone", &gomysql.MySQLError{Number: 2006, Message: "gone away"}, errs.ErrKindConnectionFailed},
		{"unknown table", &gomysql.MySQLError{Number: 1146, Message: "no table"}, errs.ErrKindNotFound},
		{"interrupted", &gomysql.MySQLError{Number: 1317, Message: "interrupted"}, errs.ErrKindTimeout},
		{"syntax", &gomysql.MySQLError{Number: 1064, Message: "syntax"}, errs.ErrKindQueryFailed},
		{"scan conversion", fmt.Errorf("sql: Scan error on column index 0"), errs.ErrKindQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "op")
			assert.Equal(t, tt.want, got.Kind)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.Nil(t, mapError(nil, "op"))
}
