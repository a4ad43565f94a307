package render

import (
	"bytes"

	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/schema"
	"go.yaml.in/yaml/v3"
)

// renderYAML dumps the whole model, profiles and warnings included. Sketch
// bytes are left out; they are published separately.
func renderYAML(db *schema.Database, _ Options) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(db); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "encode yaml", err)
	}
	if err := enc.Close(); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "encode yaml", err)
	}
	return buf.Bytes(), nil
}
