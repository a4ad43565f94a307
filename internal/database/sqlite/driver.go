// Package sqlite implements database.DB for SQLite files using mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/koustreak/dschema/internal/database"
	"github.com/koustreak/dschema/internal/database/sqldb"
	"github.com/koustreak/dschema/internal/errs"
	_ "github.com/mattn/go-sqlite3" // register "sqlite3" driver
)

// Driver is a SQLite implementation of database.DB. The DSN is a file path
// or a go-sqlite3 "file:" URI. Every pooled connection opens its own handle,
// so ":memory:" gives each connection a separate empty database; use a file.
type Driver struct {
	*sqldb.DB
}

var _ database.DB = (*Driver)(nil)

// New opens the database file and pings it.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}
	sqldb.Configure(db, cfg)

	d := &Driver{DB: sqldb.Wrap(db, database.DialectSQLite, mapError)}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}
