package profile

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/schema"
)

// Report summarises one ProfileDatabase run. Tables are in reflection order.
type Report struct {
	RunID      uuid.UUID
	Database   string
	StartedAt  time.Time
	FinishedAt time.Time
	Tables     []*TableReport
}

// TableReport is the outcome for one table.
type TableReport struct {
	Table string

	// Err is the table_count error when the row count failed. The table's
	// profile is then absent.
	Err error

	// Skipped is set for empty tables; no column was profiled.
	Skipped bool

	// Cancelled is set when the run stopped before the table finished.
	Cancelled bool

	Warnings []ColumnWarning
	Duration time.Duration
}

// ColumnWarning is a failed column step.
type ColumnWarning struct {
	Table   string
	Column  string
	Warning schema.Warning
}

// Err returns the warning as a column_stat error.
func (w ColumnWarning) Err() error {
	return errs.Newf(errs.ErrKindColumnStat, "%s.%s %s", w.Table, w.Column, w.Warning)
}

func (w ColumnWarning) String() string {
	return fmt.Sprintf("%s.%s %s", w.Table, w.Column, w.Warning)
}

// Warnings flattens column warnings of every table.
func (r *Report) Warnings() []ColumnWarning {
	var out []ColumnWarning
	for _, t := range r.Tables {
		out = append(out, t.Warnings...)
	}
	return out
}

// Failed returns the reports of tables whose row count failed.
func (r *Report) Failed() []*TableReport {
	var out []*TableReport
	for _, t := range r.Tables {
		if t.Err != nil {
			out = append(out, t)
		}
	}
	return out
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// collectWarnings gathers column warnings in column order.
func collectWarnings(t *schema.Table) []ColumnWarning {
	var out []ColumnWarning
	for _, c := range t.Columns {
		if c.Profile == nil {
			continue
		}
		for _, w := range c.Profile.Warnings {
			out = append(out, ColumnWarning{Table: t.Name, Column: c.Name, Warning: w})
		}
	}
	return out
}
