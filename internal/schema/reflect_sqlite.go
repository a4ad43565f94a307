package schema

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/koustreak/dschema/internal/database"
)

// sqliteCatalog reads SQLite metadata through sqlite_master and the pragma
// table-valued functions. The schema argument is ignored.
type sqliteCatalog struct {
	db database.DB
}

// databaseName is the main database file name without its extension.
func (s *sqliteCatalog) databaseName(ctx context.Context, _ string) (string, error) {
	var file *string
	err := s.db.QueryRow(ctx, `SELECT file FROM pragma_database_list WHERE name = 'main'`).Scan(&file)
	if err != nil {
		return "", err
	}
	if file == nil || *file == "" {
		return "main", nil
	}
	base := filepath.Base(*file)
	return strings.TrimSuffix(base, filepath.Ext(base)), nil
}

func (s *sqliteCatalog) listTables(ctx context.Context, _ string) ([]string, error) {
	const q = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`
	return database.QueryStrings(ctx, s.db, q)
}

func (s *sqliteCatalog) listColumns(ctx context.Context, _ string, table string) ([]*Column, error) {
	const q = `
		SELECT name, type, "notnull", pk
		FROM pragma_table_info(?)
		ORDER BY cid`

	rows, err := s.db.Query(ctx, q, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []*Column
	for rows.Next() {
		var col Column
		var notNull, pk int64
		if err := rows.Scan(&col.Name, &col.DeclaredType, &notNull, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		col.IsPrimaryKey = pk > 0
		col.Nullable = notNull == 0 && !col.IsPrimaryKey
		col.DeclaredType = strings.ToUpper(col.DeclaredType)
		cols = append(cols, &col)
	}
	return cols, rows.Err()
}

// listForeignKeys resolves implicit references ("REFERENCES parent" without
// a column list) to the parent's primary key.
func (s *sqliteCatalog) listForeignKeys(ctx context.Context, _ string, table string) (map[string]*ForeignKeyRef, error) {
	const q = `
		SELECT "from", "table", "to"
		FROM pragma_foreign_key_list(?)
		ORDER BY id, seq`

	rows, err := s.db.Query(ctx, q, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fks := make(map[string]*ForeignKeyRef)
	for rows.Next() {
		var from, refTable string
		var to *string
		if err := rows.Scan(&from, &refTable, &to); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		if _, seen := fks[from]; seen {
			continue
		}
		ref := &ForeignKeyRef{Table: refTable}
		if to != nil {
			ref.Column = *to
		}
		fks[from] = ref
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, ref := range fks {
		if ref.Column != "" {
			continue
		}
		pks, err := database.QueryStrings(ctx, s.db,
			`SELECT name FROM pragma_table_info(?) WHERE pk = 1 ORDER BY cid`, ref.Table)
		if err != nil {
			return nil, err
		}
		if len(pks) > 0 {
			ref.Column = pks[0]
		}
	}
	return fks, nil
}
