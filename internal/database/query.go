package database

import (
	"fmt"
	"strings"

	"github.com/koustreak/dschema/internal/errs"
)

// Dialect controls quoting and casting in generated statements.
type Dialect int

const (
	// DialectPostgres quotes identifiers with "double quotes".
	DialectPostgres Dialect = iota

	// DialectMySQL quotes identifiers with `backticks`.
	DialectMySQL

	// DialectSQLite quotes identifiers with "double quotes".
	DialectSQLite
)

func (d Dialect) String() string {
	switch d {
	case DialectMySQL:
		return "mysql"
	case DialectSQLite:
		return "sqlite"
	default:
		return "postgres"
	}
}

// StatsBuilder renders the aggregate and streaming statements the profiler
// and the reflectors issue against one table. Identifiers are always quoted;
// nothing user-supplied is interpolated as a value.
//
// Usage:
//
//	q := database.Stats(database.DialectPostgres, "public", "hero")
//	sql := q.CountDistinct("name")
//	// SELECT COUNT(DISTINCT "name") FROM "public"."hero"
type StatsBuilder struct {
	dialect Dialect
	from    string
}

// Stats starts a builder for schema.table. An empty schema leaves the table
// unqualified.
func Stats(d Dialect, schema, table string) *StatsBuilder {
	from := QuoteIdent(d, table)
	if schema != "" {
		from = QuoteIdent(d, schema) + "." + from
	}
	return &StatsBuilder{dialect: d, from: from}
}

// CountRows counts every row of the table.
func (b *StatsBuilder) CountRows() string {
	return "SELECT COUNT(*) FROM " + b.from
}

// CountNulls counts rows where column is NULL.
func (b *StatsBuilder) CountNulls(column string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NULL", b.from, b.col(column))
}

// CountDistinct counts distinct non-null values of column.
func (b *StatsBuilder) CountDistinct(column string) string {
	return fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s", b.col(column), b.from)
}

// MinMax returns MIN and MAX of column in one row, each cast to text inside
// the database so drivers hand back plain strings.
func (b *StatsBuilder) MinMax(column string) string {
	c := b.col(column)
	return fmt.Sprintf("SELECT %s, %s FROM %s",
		b.castText("MIN("+c+")"), b.castText("MAX("+c+")"), b.from)
}

// AvgLength returns the average character length of column as a float.
func (b *StatsBuilder) AvgLength(column string) string {
	c := b.col(column)
	switch b.dialect {
	case DialectPostgres:
		return fmt.Sprintf("SELECT CAST(AVG(LENGTH(%s)) AS DOUBLE PRECISION) FROM %s", c, b.from)
	case DialectMySQL:
		return fmt.Sprintf("SELECT AVG(CHAR_LENGTH(%s)) FROM %s", c, b.from)
	default:
		return fmt.Sprintf("SELECT AVG(LENGTH(%s)) FROM %s", c, b.from)
	}
}

// TopK returns the k most frequent non-null values with their counts,
// highest count first. Ties are broken by MIN(tieBreak) ascending, which with
// a primary key column approximates first-seen order; an empty tieBreak
// falls back to the value itself.
func (b *StatsBuilder) TopK(column string, k int, tieBreak string) (string, error) {
	if k < 1 {
		return "", errs.Newf(errs.ErrKindInvalidInput, "top-k limit must be >= 1, got %d", k)
	}
	c := b.col(column)
	order := c + " ASC"
	if tieBreak != "" {
		order = "MIN(" + b.col(tieBreak) + ") ASC"
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(b.castText(c))
	sb.WriteString(" AS value, COUNT(*) AS freq FROM ")
	sb.WriteString(b.from)
	sb.WriteString(" WHERE ")
	sb.WriteString(c)
	sb.WriteString(" IS NOT NULL GROUP BY ")
	sb.WriteString(c)
	sb.WriteString(" ORDER BY freq DESC, ")
	sb.WriteString(order)
	sb.WriteString(fmt.Sprintf(" LIMIT %d", k))
	return sb.String(), nil
}

// NonNullValues streams every non-null value of column as text.
func (b *StatsBuilder) NonNullValues(column string) string {
	c := b.col(column)
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL", b.castText(c), b.from, c)
}

// Samples returns up to n distinct non-null values of column as text.
func (b *StatsBuilder) Samples(column string, n int) (string, error) {
	if n < 1 {
		return "", errs.Newf(errs.ErrKindInvalidInput, "sample limit must be >= 1, got %d", n)
	}
	c := b.col(column)
	return fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL LIMIT %d",
		b.castText(c), b.from, c, n), nil
}

func (b *StatsBuilder) col(name string) string {
	return QuoteIdent(b.dialect, name)
}

// castText renders the dialect's cast-to-string of expr. Date and time
// values come back as their canonical text form, not driver objects.
func (b *StatsBuilder) castText(expr string) string {
	if b.dialect == DialectMySQL {
		return "CAST(" + expr + " AS CHAR)"
	}
	return "CAST(" + expr + " AS TEXT)"
}

// QuoteIdent wraps a SQL identifier in the dialect's quote characters,
// doubling any embedded quote. This safely handles reserved words and
// mixed-case names.
func QuoteIdent(d Dialect, name string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
