package schema

import (
	"context"
	"fmt"

	"github.com/koustreak/dschema/internal/database"
)

// mysqlCatalog reads MySQL metadata from information_schema. An empty schema
// means the connection's current database.
type mysqlCatalog struct {
	db database.DB
}

func (m *mysqlCatalog) databaseName(ctx context.Context, schema string) (string, error) {
	var name *string
	if err := m.db.QueryRow(ctx, `SELECT COALESCE(NULLIF(?, ''), DATABASE())`, schema).Scan(&name); err != nil {
		return "", err
	}
	if name == nil {
		return "", nil
	}
	return *name, nil
}

// listTables returns all user-defined table names in the given database (schema = database in MySQL)
func (m *mysqlCatalog) listTables(ctx context.Context, schema string) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := m.db.Query(ctx, q, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (m *mysqlCatalog) listColumns(ctx context.Context, schema, table string) ([]*Column, error) {
	const q = `
		SELECT
			c.column_name,
			UPPER(c.column_type),
			c.is_nullable = 'YES'   AS is_nullable,
			(c.column_key = 'PRI')  AS is_primary_key,
			c.column_comment
		FROM information_schema.columns c
		WHERE c.table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND c.table_name   = ?
		ORDER BY c.ordinal_position`

	rows, err := m.db.Query(ctx, q, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []*Column
	for rows.Next() {
		var col Column
		var comment *string

		if err := rows.Scan(
			&col.Name,
			&col.DeclaredType,
			&col.Nullable,
			&col.IsPrimaryKey,
			&comment,
		); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		col.Comment = nonEmpty(comment)
		cols = append(cols, &col)
	}
	return cols, rows.Err()
}

func (m *mysqlCatalog) listForeignKeys(ctx context.Context, schema, table string) (map[string]*ForeignKeyRef, error) {
	const q = `
		SELECT
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND kcu.table_name   = ?
		  AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position`

	rows, err := m.db.Query(ctx, q, schema, table)
	if err != nil {
		return nil, err
	}
	return scanForeignKeys(rows)
}
