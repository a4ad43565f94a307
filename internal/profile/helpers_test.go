package profile

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/koustreak/dschema/internal/database"
	"github.com/koustreak/dschema/internal/database/sqlite"
	"github.com/koustreak/dschema/internal/logger"
	"github.com/koustreak/dschema/internal/schema"
	"github.com/stretchr/testify/require"
)

// newSQLite creates a file-backed database seeded with script.
func newSQLite(t *testing.T, script string) *sqlite.Driver {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "profile.db")
	d, err := sqlite.New(context.Background(), database.DefaultConfig(database.DriverSQLite, dsn))
	require.NoError(t, err)
	t.Cleanup(d.Close)

	_, err = d.Raw().Exec(script)
	require.NoError(t, err)
	return d
}

func reflectSchema(t *testing.T, db database.DB) *schema.Database {
	t.Helper()
	s, err := schema.NewReflector(db, logger.Nop()).Reflect(context.Background(), schema.ReflectOptions{SampleLimit: 5})
	require.NoError(t, err)
	return s
}

const heroScript = `
	CREATE TABLE hero (
		id   INTEGER PRIMARY KEY,
		name VARCHAR(50) NOT NULL
	);
	INSERT INTO hero (id, name) VALUES (1, 'Superman'), (2, 'Batman');`

// fault makes statements containing match fail with err. times < 0 fails
// forever; otherwise the fault is spent after that many hits.
type fault struct {
	match string
	exact bool
	err   error
	times int
}

// faultDB wraps a real database and injects errors into matching statements.
type faultDB struct {
	database.DB

	mu     sync.Mutex
	faults []*fault
	seen   []string

	// onRows, when set, may replace the result set of a Query.
	onRows func(sql string, rows database.Rows) database.Rows
}

func newFaultDB(db database.DB) *faultDB {
	return &faultDB{DB: db}
}

func (f *faultDB) fail(match string, err error, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, &fault{match: match, err: err, times: times})
}

func (f *faultDB) failExact(sql string, err error, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, &fault{match: sql, exact: true, err: err, times: times})
}

func (f *faultDB) check(sql string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, sql)
	for _, ft := range f.faults {
		hit := strings.Contains(sql, ft.match)
		if ft.exact {
			hit = sql == ft.match
		}
		if !hit || ft.times == 0 {
			continue
		}
		if ft.times > 0 {
			ft.times--
		}
		return ft.err
	}
	return nil
}

func (f *faultDB) statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

func (f *faultDB) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	return f.query(ctx, f.DB, sql, args...)
}

func (f *faultDB) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	return f.queryRow(ctx, f.DB, sql, args...)
}

func (f *faultDB) Acquire(ctx context.Context) (database.Conn, error) {
	c, err := f.DB.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &faultConn{Conn: c, f: f}, nil
}

func (f *faultDB) query(ctx context.Context, q database.Querier, sql string, args ...any) (database.Rows, error) {
	if err := f.check(sql); err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil || f.onRows == nil {
		return rows, err
	}
	return f.onRows(sql, rows), nil
}

func (f *faultDB) queryRow(ctx context.Context, q database.Querier, sql string, args ...any) database.Row {
	if err := f.check(sql); err != nil {
		return errRow{err: err}
	}
	return q.QueryRow(ctx, sql, args...)
}

type faultConn struct {
	database.Conn
	f *faultDB
}

func (c *faultConn) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	return c.f.query(ctx, c.Conn, sql, args...)
}

func (c *faultConn) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	return c.f.queryRow(ctx, c.Conn, sql, args...)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// hookRows calls onNext before every Next.
type hookRows struct {
	database.Rows
	onNext func()
}

func (r *hookRows) Next() bool {
	r.onNext()
	return r.Rows.Next()
}
