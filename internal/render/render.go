// Package render turns a schema.Database into text formats. The set of
// formats is closed: each Kind maps to one render function and one output
// file name. Renderers read the model and never modify it.
package render

import (
	"sort"

	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/schema"
)

// Kind names an output format.
type Kind string

const (
	KindDDL           Kind = "ddl"
	KindMSchema       Kind = "m_schema"
	KindMacSQL        Kind = "mac_sql"
	KindProfileReport Kind = "profile_report"
	KindYAML          Kind = "yaml"
)

// Options tunes the comment trailer of the DDL renderer. Other renderers
// ignore it.
type Options struct {
	AllowComments      bool `yaml:"allow_comments"`
	IncludeCommentText bool `yaml:"include_comment_text"`
	IncludeExamples    bool `yaml:"include_examples"`
	IncludeProfiling   bool `yaml:"include_profiling"`
}

// DefaultOptions enables every comment part.
func DefaultOptions() Options {
	return Options{
		AllowComments:      true,
		IncludeCommentText: true,
		IncludeExamples:    true,
		IncludeProfiling:   true,
	}
}

// Func renders a whole database.
type Func func(db *schema.Database, opts Options) ([]byte, error)

type entry struct {
	render   Func
	filename string
}

var registry = map[Kind]entry{
	KindDDL:           {render: renderDDL, filename: "schema.ddl"},
	KindMSchema:       {render: renderMSchema, filename: "schema.mschema"},
	KindMacSQL:        {render: renderMacSQL, filename: "schema.macsql"},
	KindProfileReport: {render: renderProfileReport, filename: "profile_report.md"},
	KindYAML:          {render: renderYAML, filename: "schema.yaml"},
}

// Render produces kind's text for db.
func Render(kind Kind, db *schema.Database, opts Options) ([]byte, error) {
	e, ok := registry[kind]
	if !ok {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown output format %q", kind)
	}
	if db == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "nothing to render")
	}
	return e.render(db, opts)
}

// ParseKind validates a format name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := registry[k]; !ok {
		return "", errs.Newf(errs.ErrKindInvalidInput, "unknown output format %q", s)
	}
	return k, nil
}

// Kinds lists every format, sorted.
func Kinds() []Kind {
	out := make([]Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Filename is the conventional output file name for kind.
func Filename(kind Kind) string {
	if e, ok := registry[kind]; ok {
		return e.filename
	}
	return "schema." + string(kind) + ".txt"
}

// ContentType is the HTTP media type of kind's output.
func ContentType(kind Kind) string {
	switch kind {
	case KindProfileReport:
		return "text/markdown; charset=utf-8"
	case KindYAML:
		return "application/yaml"
	default:
		return "text/plain; charset=utf-8"
	}
}
