package render

import (
	"fmt"
	"strings"

	"github.com/koustreak/dschema/internal/schema"
)

// defaultComment describes a column that has no comment of its own.
func defaultComment(table string, c *schema.Column) string {
	if c.Comment != nil && *c.Comment != "" {
		return *c.Comment
	}
	return fmt.Sprintf("the %s of the %s", strings.ReplaceAll(c.Name, "_", " "), table)
}

// nonNullPercent is the non-null share of the column's own null and
// non-null counts.
func nonNullPercent(p *schema.ColumnProfile) (float64, bool) {
	if p == nil || p.NullCount == nil || p.NonNullCount == nil {
		return 0, false
	}
	total := *p.NullCount + *p.NonNullCount
	if total <= 0 {
		return 0, false
	}
	return float64(*p.NonNullCount) / float64(total) * 100, true
}

func joinSamples(samples []string, quote bool) string {
	parts := make([]string, len(samples))
	for i, s := range samples {
		if quote {
			s = "'" + s + "'"
		}
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}
