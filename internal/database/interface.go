package database

import "context"

// Querier issues read-only SQL. Both the pool and a single checked-out
// connection satisfy it.
type Querier interface {
	// Query executes a SQL statement that returns multiple rows.
	// Rows are streamed: the driver fetches them as Next is called.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a SQL statement that returns at most one row.
	// Errors are deferred to Row.Scan.
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// DB is the central contract for all database access.
// Layers above this package talk only to this interface;
// they never import the postgres, mysql or sqlite packages directly.
type DB interface {
	Querier

	// Dialect reports which SQL flavour the statements must be written in.
	Dialect() Dialect

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Acquire checks out a dedicated connection from the pool. Most client
	// libraries do not allow concurrent use of one connection, so every
	// concurrent worker must hold its own. The caller must Release it.
	Acquire(ctx context.Context) (Conn, error)

	// Close releases all resources held by the connection pool.
	Close()
}

// Conn is a single connection checked out of a DB pool.
type Conn interface {
	Querier

	// Release returns the connection to the pool. Safe to call once.
	Release()
}

// Rows is a lazy, forward-only, single-pass result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}
