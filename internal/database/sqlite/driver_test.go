package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/koustreak/dschema/internal/database"
	"github.com/koustreak/dschema/internal/errs"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Driver {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	d, err := New(context.Background(), database.DefaultConfig(database.DriverSQLite, dsn))
	require.NoError(t, err)
	t.Cleanup(d.Close)

	_, err = d.Raw().Exec(`
		CREATE TABLE hero (id INTEGER PRIMARY KEY, name TEXT);
		INSERT INTO hero (id, name) VALUES (1, 'Superman'), (2, 'Batman'), (3, NULL);`)
	require.NoError(t, err)
	return d
}

func TestDriver_QueryAndAcquire(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)

	assert.Equal(t, database.DialectSQLite, d.Dialect())

	n, err := database.QueryInt64(ctx, d, `SELECT COUNT(*) FROM "hero"`)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	conn, err := d.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	names, err := database.QueryStrings(ctx, conn, `SELECT name FROM "hero" ORDER BY id`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Superman", "Batman"}, names)

	avg, err := database.QueryNullFloat(ctx, conn, `SELECT AVG(LENGTH(name)) FROM "hero" WHERE id > 100`)
	require.NoError(t, err)
	assert.Nil(t, avg)
}

func TestDriver_QueryErrorsAreMapped(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)

	_, err := d.Query(ctx, `SELECT * FROM "missing"`)
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))

	var n int64
	err = d.QueryRow(ctx, `SELECT id FROM "hero" WHERE id = 99`).Scan(&n)
	assert.True(t, errs.IsNotFound(err))
}

func TestDriver_CancelledContext(t *testing.T) {
	d := openTemp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Query(ctx, `SELECT name FROM "hero"`)
	require.Error(t, err)
	assert.True(t, errs.IsCancelled(err))
}

func TestClassifyCode(t *testing.T) {
	tests := []struct {
		code sqlite3.ErrNo
		want errs.ErrKind
	}{
		{sqlite3.ErrCantOpen, errs.ErrKindConnectionFailed},
		{sqlite3.ErrNotADB, errs.ErrKindConnectionFailed},
		{sqlite3.ErrPerm, errs.ErrKindPermissionDenied},
		{sqlite3.ErrBusy, errs.ErrKindTimeout},
		{sqlite3.ErrError, errs.ErrKindQueryFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyCode(tt.code), tt.code.Error())
	}
}
