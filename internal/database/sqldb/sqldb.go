// Package sqldb adapts a database/sql pool to database.DB. The mysql and
// sqlite drivers share it and only supply their own error mapping.
package sqldb

import (
	"context"
	"database/sql"

	"github.com/koustreak/dschema/internal/database"
	"github.com/koustreak/dschema/internal/errs"
)

// MapFunc translates a native driver error into *errs.Error.
type MapFunc func(err error, msg string) *errs.Error

// DB wraps *sql.DB. It is safe for concurrent use by multiple goroutines.
type DB struct {
	db      *sql.DB
	dialect database.Dialect
	mapErr  MapFunc
}

var _ database.DB = (*DB)(nil)

// Wrap builds a DB around an already opened pool.
func Wrap(db *sql.DB, dialect database.Dialect, mapErr MapFunc) *DB {
	return &DB{db: db, dialect: dialect, mapErr: mapErr}
}

// Configure applies the pool settings from cfg.
func Configure(db *sql.DB, cfg *database.Config) {
	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
}

// Raw exposes the underlying pool for driver-specific setup.
func (d *DB) Raw() *sql.DB { return d.db }

func (d *DB) Dialect() database.Dialect { return d.dialect }

func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return d.mapErr(err, "ping failed")
	}
	return nil
}

func (d *DB) Close() {
	_ = d.db.Close()
}

func (d *DB) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, d.mapErr(err, "query failed")
	}
	return &sqlRows{rows: rows, mapErr: d.mapErr}, nil
}

func (d *DB) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return &sqlRow{row: d.db.QueryRowContext(ctx, query, args...), mapErr: d.mapErr}
}

// Acquire pins one connection of the pool via sql.DB.Conn.
func (d *DB) Acquire(ctx context.Context) (database.Conn, error) {
	c, err := d.db.Conn(ctx)
	if err != nil {
		return nil, d.mapErr(err, "failed to acquire connection")
	}
	return &sqlConn{conn: c, mapErr: d.mapErr}, nil
}

// --- sql.Conn / sql.Rows / sql.Row wrappers ---

type sqlConn struct {
	conn   *sql.Conn
	mapErr MapFunc
}

func (c *sqlConn) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, c.mapErr(err, "query failed")
	}
	return &sqlRows{rows: rows, mapErr: c.mapErr}, nil
}

func (c *sqlConn) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return &sqlRow{row: c.conn.QueryRowContext(ctx, query, args...), mapErr: c.mapErr}
}

func (c *sqlConn) Release() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

type sqlRows struct {
	rows   *sql.Rows
	mapErr MapFunc
}

func (r *sqlRows) Next() bool { return r.rows.Next() }
func (r *sqlRows) Close()     { _ = r.rows.Close() }

func (r *sqlRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return r.mapErr(err, "failed to scan row")
	}
	return nil
}

func (r *sqlRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return r.mapErr(err, "error during row iteration")
	}
	return nil
}

type sqlRow struct {
	row    *sql.Row
	mapErr MapFunc
}

func (r *sqlRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return r.mapErr(err, "query failed")
	}
	return nil
}
