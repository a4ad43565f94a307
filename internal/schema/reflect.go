package schema

import (
	"context"
	"fmt"
	"path"

	"github.com/koustreak/dschema/internal/database"
	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/logger"
)

// ReflectOptions narrows what Reflect reads.
type ReflectOptions struct {
	// Schema is the namespace to read. Empty means the connection default
	// ("public" is not assumed; postgres callers should set it).
	Schema string `yaml:"schema"`

	// IncludeTables keeps only matching tables when non-empty. Entries are
	// path.Match patterns, so "order_*" works.
	IncludeTables []string `yaml:"include_tables"`

	// ExcludeTables drops matching tables. Applied after IncludeTables.
	ExcludeTables []string `yaml:"exclude_tables"`

	// SampleLimit is the number of distinct example values fetched per
	// column. Zero disables sampling.
	SampleLimit int `yaml:"sample_limit"`
}

// catalog is the per-engine part of reflection: it reads the system tables.
type catalog interface {
	databaseName(ctx context.Context, schema string) (string, error)
	listTables(ctx context.Context, schema string) ([]string, error)
	listColumns(ctx context.Context, schema, table string) ([]*Column, error)
	listForeignKeys(ctx context.Context, schema, table string) (map[string]*ForeignKeyRef, error)
}

// Reflector reads table and column metadata from a live database and
// builds a Database skeleton with no profiles attached.
type Reflector struct {
	db  database.DB
	cat catalog
	log *logger.Logger
}

// NewReflector picks the catalog queries matching db's dialect.
func NewReflector(db database.DB, log *logger.Logger) *Reflector {
	if log == nil {
		log = logger.Nop()
	}
	var cat catalog
	switch db.Dialect() {
	case database.DialectMySQL:
		cat = &mysqlCatalog{db: db}
	case database.DialectSQLite:
		cat = &sqliteCatalog{db: db}
	default:
		cat = &pgCatalog{db: db}
	}
	return &Reflector{db: db, cat: cat, log: log.Named("reflector")}
}

// Reflect reads every selected table with its columns, primary keys,
// foreign keys, comments and sample values.
func (r *Reflector) Reflect(ctx context.Context, opts ReflectOptions) (*Database, error) {
	if opts.SampleLimit < 0 {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "sample_limit must be >= 0, got %d", opts.SampleLimit)
	}
	if err := validatePatterns(opts.IncludeTables); err != nil {
		return nil, err
	}
	if err := validatePatterns(opts.ExcludeTables); err != nil {
		return nil, err
	}

	name, err := r.cat.databaseName(ctx, opts.Schema)
	if err != nil {
		return nil, fmt.Errorf("database name: %w", err)
	}

	names, err := r.cat.listTables(ctx, opts.Schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	db := &Database{Name: name, Tables: make([]*Table, 0, len(names))}
	for _, tableName := range names {
		if !selected(tableName, opts) {
			r.log.Debugf("skipping table %s", tableName)
			continue
		}
		t, err := r.reflectTable(ctx, opts, tableName)
		if err != nil {
			return nil, err
		}
		db.Tables = append(db.Tables, t)
	}

	r.log.With().Str("database", name).Int("tables", len(db.Tables)).Logger().Info("schema reflected")
	return db, nil
}

func (r *Reflector) reflectTable(ctx context.Context, opts ReflectOptions, name string) (*Table, error) {
	cols, err := r.cat.listColumns(ctx, opts.Schema, name)
	if err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", name, err)
	}
	fks, err := r.cat.listForeignKeys(ctx, opts.Schema, name)
	if err != nil {
		return nil, fmt.Errorf("foreign keys of %s: %w", name, err)
	}

	t := &Table{Name: name, Columns: cols}
	for _, c := range cols {
		c.ForeignKey = fks[c.Name]
	}

	if opts.SampleLimit > 0 {
		if err := r.fetchSamples(ctx, opts, t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// fetchSamples fills Column.Samples. Failures leave the column without
// samples; only connection loss and cancellation abort reflection.
func (r *Reflector) fetchSamples(ctx context.Context, opts ReflectOptions, t *Table) error {
	q := database.Stats(r.db.Dialect(), opts.Schema, t.Name)
	for _, c := range t.Columns {
		sql, err := q.Samples(c.Name, opts.SampleLimit)
		if err != nil {
			return err
		}
		samples, err := database.QueryStrings(ctx, r.db, sql)
		if err != nil {
			if errs.IsConnectionFailed(err) || errs.IsCancelled(err) {
				return err
			}
			r.log.WarnWith("could not fetch samples", err, map[string]interface{}{
				"table":  t.Name,
				"column": c.Name,
			})
			c.Samples = nil
			continue
		}
		c.Samples = samples
	}
	return nil
}

func selected(table string, opts ReflectOptions) bool {
	if len(opts.IncludeTables) > 0 && !matchAny(opts.IncludeTables, table) {
		return false
	}
	return !matchAny(opts.ExcludeTables, table)
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

func validatePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := path.Match(p, ""); err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("bad table pattern %q", p), err)
		}
	}
	return nil
}

// scanForeignKeys reads (column, ref_table, ref_column) rows keeping the
// first reference per column.
func scanForeignKeys(rows database.Rows) (map[string]*ForeignKeyRef, error) {
	defer rows.Close()

	fks := make(map[string]*ForeignKeyRef)
	for rows.Next() {
		var col string
		var ref ForeignKeyRef
		if err := rows.Scan(&col, &ref.Table, &ref.Column); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		if _, seen := fks[col]; !seen {
			fks[col] = &ref
		}
	}
	return fks, rows.Err()
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
