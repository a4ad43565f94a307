package render

import (
	"fmt"
	"strings"

	"github.com/koustreak/dschema/internal/schema"
)

func renderMacSQL(db *schema.Database, _ Options) ([]byte, error) {
	tables := make([]string, 0, len(db.Tables))
	for _, t := range db.Tables {
		tables = append(tables, macSQLTable(t))
	}
	return []byte(strings.Join(tables, "\n\n")), nil
}

func macSQLTable(t *schema.Table) string {
	header := "# Table: " + t.Name
	var records int64
	if t.Profile != nil {
		records = t.Profile.RecordCount
		header += fmt.Sprintf(" (%d rows)", records)
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, macSQLColumn(t.Name, c, records))
	}
	return header + "\n[\n" + strings.Join(cols, "\n") + "\n]"
}

// macSQLColumn measures the non-null share against the table's row count.
func macSQLColumn(table string, c *schema.Column, records int64) string {
	line := fmt.Sprintf("(%s, %s. Value examples: [%s].)",
		c.Name, defaultComment(table, c), joinSamples(c.Samples, true))

	p := c.Profile
	if p == nil {
		return line
	}

	var prof []string
	if p.NonNullCount != nil && records > 0 {
		prof = append(prof, fmt.Sprintf("%.1f%% non-null", float64(*p.NonNullCount)/float64(records)*100))
	}
	if p.DistinctCount != nil {
		prof = append(prof, fmt.Sprintf("%d distinct", *p.DistinctCount))
	}
	if p.MinValue != nil {
		prof = append(prof, fmt.Sprintf("min='%s'", *p.MinValue))
	}
	if p.MaxValue != nil {
		prof = append(prof, fmt.Sprintf("max='%s'", *p.MaxValue))
	}
	if p.AvgCharLength != nil {
		prof = append(prof, fmt.Sprintf("avg_len=%.1f", *p.AvgCharLength))
	}
	if len(prof) > 0 {
		line += " (Profile: " + strings.Join(prof, ", ") + ")"
	}
	return line
}
