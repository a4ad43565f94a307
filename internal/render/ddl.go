package render

import (
	"fmt"
	"strings"

	"github.com/koustreak/dschema/internal/schema"
)

// ddlLine is one definition inside CREATE TABLE plus its trailing comment.
type ddlLine struct {
	def     string
	comment string
}

func renderDDL(db *schema.Database, opts Options) ([]byte, error) {
	tables := make([]string, 0, len(db.Tables))
	for _, t := range db.Tables {
		tables = append(tables, ddlTable(t, opts))
	}
	return []byte(strings.Join(tables, "\n\n")), nil
}

func ddlTable(t *schema.Table, opts Options) string {
	lines := make([]ddlLine, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		lines = append(lines, ddlColumn(c, opts))
	}

	var pks []string
	for _, c := range t.PrimaryKeyColumns() {
		pks = append(pks, c.Name)
	}
	if len(pks) > 0 {
		lines = append(lines, ddlLine{def: fmt.Sprintf("    PRIMARY KEY (%s)", strings.Join(pks, ", "))})
	}

	for _, c := range t.Columns {
		if c.ForeignKey != nil {
			lines = append(lines, ddlLine{def: fmt.Sprintf("    FOREIGN KEY (%s) REFERENCES %s", c.Name, c.ForeignKey)})
		}
	}

	// The separating comma goes before the comment, otherwise the comment
	// would swallow it.
	var sb strings.Builder
	sb.WriteString("CREATE TABLE " + t.Name + " (\n")
	for i, l := range lines {
		sb.WriteString(l.def)
		if i < len(lines)-1 {
			sb.WriteByte(',')
		}
		if l.comment != "" {
			sb.WriteString("  -- " + l.comment)
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(");")
	return sb.String()
}

func ddlColumn(c *schema.Column, opts Options) ddlLine {
	l := ddlLine{def: fmt.Sprintf("    %s %s", c.Name, c.DeclaredType)}
	if !c.Nullable {
		l.def += " NOT NULL"
	}
	if !opts.AllowComments {
		return l
	}

	var parts []string
	if opts.IncludeCommentText && c.Comment != nil && *c.Comment != "" {
		parts = append(parts, *c.Comment)
	}
	if opts.IncludeExamples && len(c.Samples) > 0 {
		parts = append(parts, fmt.Sprintf("example: [%s]", joinSamples(c.Samples, false)))
	}
	if opts.IncludeProfiling && c.Profile != nil {
		var prof []string
		if pct, ok := nonNullPercent(c.Profile); ok {
			prof = append(prof, fmt.Sprintf("%.1f%% non-null", pct))
		}
		if c.Profile.DistinctCount != nil {
			prof = append(prof, fmt.Sprintf("%d distinct", *c.Profile.DistinctCount))
		}
		if len(prof) > 0 {
			parts = append(parts, "Profile: "+strings.Join(prof, ", "))
		}
	}
	// Comments are single-line.
	l.comment = strings.ReplaceAll(strings.Join(parts, "; "), "\n", " ")
	return l
}
