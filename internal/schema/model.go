// Package schema holds the engine-independent description of a database and
// the reflectors that build it from a live connection.
package schema

import (
	"fmt"
	"strings"
)

// Database is the root of a reflected schema. Table order is reflection order.
type Database struct {
	Name   string   `json:"name" yaml:"name"`
	Tables []*Table `json:"tables" yaml:"tables"`
}

// Table describes one base table. Column order is reflection order and is
// never re-sorted.
type Table struct {
	Name    string        `json:"name" yaml:"name"`
	Columns []*Column     `json:"columns" yaml:"columns"`
	Profile *TableProfile `json:"profile,omitempty" yaml:"profile,omitempty"`
}

// Column describes one table column.
type Column struct {
	Name         string         `json:"name" yaml:"name"`
	DeclaredType string         `json:"type" yaml:"type"`
	Nullable     bool           `json:"nullable" yaml:"nullable"`
	IsPrimaryKey bool           `json:"primary_key" yaml:"primary_key"`
	ForeignKey   *ForeignKeyRef `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
	Comment      *string        `json:"comment,omitempty" yaml:"comment,omitempty"`
	Samples      []string       `json:"samples,omitempty" yaml:"samples,omitempty"`
	Profile      *ColumnProfile `json:"profile,omitempty" yaml:"profile,omitempty"`
}

// ForeignKeyRef points at the referenced column. The target may not exist in
// the reflected Database when the referenced table was filtered out.
type ForeignKeyRef struct {
	Table  string `json:"table" yaml:"table"`
	Column string `json:"column" yaml:"column"`
}

func (r ForeignKeyRef) String() string {
	return fmt.Sprintf("%s(%s)", r.Table, r.Column)
}

// TableProfile holds table-level statistics.
type TableProfile struct {
	RecordCount int64 `json:"record_count" yaml:"record_count"`
}

// ColumnProfile holds per-column statistics. A nil field means the step was
// not run or failed; Warnings says which.
type ColumnProfile struct {
	NullCount     *int64       `json:"null_count,omitempty" yaml:"null_count,omitempty"`
	NonNullCount  *int64       `json:"non_null_count,omitempty" yaml:"non_null_count,omitempty"`
	DistinctCount *int64       `json:"distinct_count,omitempty" yaml:"distinct_count,omitempty"`
	MinValue      *string      `json:"min_value,omitempty" yaml:"min_value,omitempty"`
	MaxValue      *string      `json:"max_value,omitempty" yaml:"max_value,omitempty"`
	AvgCharLength *float64     `json:"avg_char_length,omitempty" yaml:"avg_char_length,omitempty"`
	TopK          []ValueCount `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	Sketch        []byte       `json:"-" yaml:"-"`
	Warnings      []Warning    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ValueCount is one entry of a top-K list.
type ValueCount struct {
	Value     string `json:"value" yaml:"value"`
	Frequency int64  `json:"frequency" yaml:"frequency"`
}

// Warning records a profiling step that failed for one column.
type Warning struct {
	Step    string `json:"step" yaml:"step"`
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: [%s] %s", w.Step, w.Kind, w.Message)
}

// Table returns the table with the given name, or nil.
func (d *Database) Table(name string) *Table {
	for _, t := range d.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// PrimaryKeyColumns returns the primary key columns in column order.
func (t *Table) PrimaryKeyColumns() []*Column {
	var pks []*Column
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			pks = append(pks, c)
		}
	}
	return pks
}

// IsTextLike reports whether the declared type names a character type.
func (c *Column) IsTextLike() bool {
	t := strings.ToUpper(c.DeclaredType)
	return strings.Contains(t, "CHAR") || strings.Contains(t, "TEXT")
}

// HasSketch reports whether a serialized sketch is attached.
func (p *ColumnProfile) HasSketch() bool {
	return p != nil && len(p.Sketch) > 0
}

// NonNullRatio returns non-null rows as a fraction of recordCount. ok is
// false when either side is unknown or recordCount is zero.
func (p *ColumnProfile) NonNullRatio(recordCount int64) (ratio float64, ok bool) {
	if p == nil || p.NonNullCount == nil || recordCount <= 0 {
		return 0, false
	}
	return float64(*p.NonNullCount) / float64(recordCount), true
}

// DanglingReference is a foreign key whose target is not in the Database.
type DanglingReference struct {
	Table  string
	Column string
	Ref    ForeignKeyRef
}

// DanglingReferences lists foreign keys that point outside the reflected set.
func (d *Database) DanglingReferences() []DanglingReference {
	var out []DanglingReference
	for _, t := range d.Tables {
		for _, c := range t.Columns {
			if c.ForeignKey == nil {
				continue
			}
			target := d.Table(c.ForeignKey.Table)
			if target == nil || target.Column(c.ForeignKey.Column) == nil {
				out = append(out, DanglingReference{Table: t.Name, Column: c.Name, Ref: *c.ForeignKey})
			}
		}
	}
	return out
}
