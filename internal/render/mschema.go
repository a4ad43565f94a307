package render

import (
	"fmt"
	"strings"

	"github.com/koustreak/dschema/internal/schema"
)

// renderMSchema writes the M-Schema prompt layout: a database header, one
// block per table and a closing list of foreign key equalities.
func renderMSchema(db *schema.Database, _ Options) ([]byte, error) {
	parts := []string{fmt.Sprintf("[DB_ID] %s\n", db.Name), "[Schema]"}

	var fks []string
	for _, t := range db.Tables {
		lines := []string{"# Table: " + t.Name}
		for _, c := range t.Columns {
			lines = append(lines, mschemaColumn(t.Name, c))
			if c.ForeignKey != nil {
				fks = append(fks, fmt.Sprintf("%s.%s = %s.%s", t.Name, c.Name, c.ForeignKey.Table, c.ForeignKey.Column))
			}
		}
		parts = append(parts, strings.Join(lines, "\n"), "")
	}

	if len(fks) > 0 {
		parts = append(parts, "[Foreign keys]")
		parts = append(parts, fks...)
	}
	return []byte(strings.Join(parts, "\n")), nil
}

func mschemaColumn(table string, c *schema.Column) string {
	parts := []string{c.Name + ":" + c.DeclaredType}
	if c.IsPrimaryKey {
		parts = append(parts, "Primary Key")
	}
	parts = append(parts, defaultComment(table, c))
	if c.ForeignKey != nil {
		parts = append(parts, "Maps to "+c.ForeignKey.String())
	}
	if len(c.Samples) > 0 {
		parts = append(parts, fmt.Sprintf("Examples:[%s]", joinSamples(c.Samples, false)))
	}
	if c.Profile != nil {
		var prof []string
		if pct, ok := nonNullPercent(c.Profile); ok {
			prof = append(prof, fmt.Sprintf("%.1f%% non-null", pct))
		}
		if c.Profile.DistinctCount != nil {
			prof = append(prof, fmt.Sprintf("%d distinct values", *c.Profile.DistinctCount))
		}
		if len(prof) > 0 {
			parts = append(parts, "Profile: "+strings.Join(prof, ", "))
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
