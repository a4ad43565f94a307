package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/dschema/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestClassifySQLState(t *testing.T) {
	tests := []struct {
		code string
		want errs.ErrKind
	}{
		{"08006", errs.ErrKindConnectionFailed},
		{"08001", errs.ErrKindConnectionFailed},
		{"57P01", errs.ErrKindConnectionFailed},
		{"28P01", errs.ErrKindPermissionDenied},
		{"42501", errs.ErrKindPermissionDenied},
		{"57014", errs.ErrKindTimeout},
		{"42P01", errs.ErrKindNotFound},
		{"22P02", errs.ErrKindQueryFailed},
		{"", errs.ErrKindQueryFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifySQLState(tt.code), tt.code)
	}
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil, "op"))

	assert.Equal(t, errs.ErrKindNotFound, mapError(pgx.ErrNoRows, "op").Kind)
	assert.Equal(t, errs.ErrKindCancelled, mapError(context.Canceled, "op").Kind)
	assert.Equal(t, errs.ErrKindTimeout, mapError(context.DeadlineExceeded, "op").Kind)

	pgErr := &pgconn.PgError{Code: "42703", Message: "column \"nope\" does not exist"}
	got := mapError(pgErr, "query failed")
	assert.Equal(t, errs.ErrKindNotFound, got.Kind)
	assert.Contains(t, got.Message, "does not exist")

	// client-side failures only affect the statement
	assert.Equal(t, errs.ErrKindQueryFailed, mapError(errors.New("can't scan into dest[0]"), "op").Kind)
}
