package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/koustreak/dschema/internal/schema"
)

const noProfile = "*No profile data*"

func renderProfileReport(db *schema.Database, _ Options) ([]byte, error) {
	parts := []string{"# Data Profiling Report\n"}
	for _, t := range db.Tables {
		parts = append(parts, reportTable(t), "\n---\n")
	}
	return []byte(strings.Join(parts, "\n")), nil
}

func reportTable(t *schema.Table) string {
	records := "N/A"
	if t.Profile != nil {
		records = strconv.FormatInt(t.Profile.RecordCount, 10)
	}

	lines := []string{
		fmt.Sprintf("### Table: `%s`\n*Record Count: %s*\n", t.Name, records),
		"| Column Name | Data Type | Profile Details |",
		"|-------------|-----------|-----------------|",
	}
	for _, c := range t.Columns {
		lines = append(lines, fmt.Sprintf("| %s | %s | %s |", cell(c.Name), cell(c.DeclaredType), reportDetails(c.Profile)))
	}
	return strings.Join(lines, "\n")
}

func reportDetails(p *schema.ColumnProfile) string {
	if p == nil {
		return noProfile
	}

	nonNull := "N/A"
	if pct, ok := nonNullPercent(p); ok {
		nonNull = fmt.Sprintf("%.1f%%", pct)
	}
	distinct := "N/A"
	if p.DistinctCount != nil {
		distinct = strconv.FormatInt(*p.DistinctCount, 10)
	}

	details := []string{
		"**Non-Null**: " + nonNull,
		"**Distinct**: " + distinct,
		"**Min**: " + orNA(p.MinValue),
		"**Max**: " + orNA(p.MaxValue),
	}
	if p.AvgCharLength != nil {
		details = append(details, fmt.Sprintf("**Avg. Len**: %.2f", *p.AvgCharLength))
	}
	if len(p.TopK) > 0 {
		top := make([]string, len(p.TopK))
		for i, vc := range p.TopK {
			top[i] = fmt.Sprintf("'%s' (%d)", cell(vc.Value), vc.Frequency)
		}
		details = append(details, "**Top Values**: "+strings.Join(top, ", "))
	}
	if len(p.Warnings) > 0 {
		steps := make([]string, len(p.Warnings))
		for i, w := range p.Warnings {
			steps[i] = w.Step
		}
		details = append(details, "**Not computed**: "+strings.Join(steps, ", "))
	}
	return strings.Join(details, "<br>")
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return cell(*s)
}

// cell keeps a value from breaking the markdown table.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
