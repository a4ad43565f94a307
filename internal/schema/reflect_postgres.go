package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/dschema/internal/database"
)

// pgCatalog reads PostgreSQL metadata from information_schema.
type pgCatalog struct {
	db database.DB
}

func (p *pgCatalog) databaseName(ctx context.Context, _ string) (string, error) {
	var name string
	if err := p.db.QueryRow(ctx, `SELECT current_database()`).Scan(&name); err != nil {
		return "", err
	}
	return name, nil
}

// listTables returns all user-defined table names in the given schema
func (p *pgCatalog) listTables(ctx context.Context, schema string) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := p.db.Query(ctx, q, schema)
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

func (p *pgCatalog) listColumns(ctx context.Context, schema, table string) ([]*Column, error) {
	const q = `
		SELECT
			c.column_name,
			UPPER(c.data_type),
			c.character_maximum_length::int,
			c.is_nullable = 'YES'              AS is_nullable,
			COALESCE(pk.is_pk, false)          AS is_primary_key,
			pg_catalog.col_description(
				(quote_ident(c.table_schema) || '.' || quote_ident(c.table_name))::regclass,
				c.ordinal_position::int
			)                                  AS comment
		FROM information_schema.columns c

		-- Primary key check
		LEFT JOIN (
			SELECT kcu.column_name, true AS is_pk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
			  AND tc.table_schema = $1
			  AND tc.table_name   = $2
		) pk ON pk.column_name = c.column_name

		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`

	rows, err := p.db.Query(ctx, q, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []*Column
	for rows.Next() {
		var col Column
		var maxLen *int32
		var comment *string

		if err := rows.Scan(
			&col.Name,
			&col.DeclaredType,
			&maxLen,
			&col.Nullable,
			&col.IsPrimaryKey,
			&comment,
		); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if maxLen != nil {
			col.DeclaredType = fmt.Sprintf("%s(%d)", col.DeclaredType, *maxLen)
		}
		col.DeclaredType = strings.TrimSpace(col.DeclaredType)
		col.Comment = nonEmpty(comment)
		cols = append(cols, &col)
	}
	return cols, rows.Err()
}

func (p *pgCatalog) listForeignKeys(ctx context.Context, schema, table string) (map[string]*ForeignKeyRef, error) {
	const q = `
		SELECT
			kcu.column_name  AS from_column,
			ccu.table_name   AS to_table,
			ccu.column_name  AS to_column
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1
		  AND kcu.table_name  = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position`

	rows, err := p.db.Query(ctx, q, schema, table)
	if err != nil {
		return nil, err
	}
	return scanForeignKeys(rows)
}
