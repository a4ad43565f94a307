package profile

import (
	"fmt"
	"sort"

	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/schema"
	"github.com/koustreak/dschema/internal/sketch"
)

// ColumnRef names a column as table.column.
type ColumnRef struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

func (r ColumnRef) String() string {
	return fmt.Sprintf("%s.%s", r.Table, r.Column)
}

// Candidate is a likely foreign key found by comparing value-set sketches.
// To is the side holding the referenced values (a primary key when one of
// the two columns is one).
type Candidate struct {
	From       ColumnRef `json:"from"`
	To         ColumnRef `json:"to"`
	Similarity float64   `json:"similarity"`
	Declared   bool      `json:"declared"`
}

type sketched struct {
	ref    ColumnRef
	col    *schema.Column
	sketch *sketch.Sketch
}

// Candidates compares the sketches of every pair of columns in different
// tables and returns pairs at or above threshold, most similar first.
// Columns without a sketch or with no non-null values are ignored.
func Candidates(db *schema.Database, threshold float64) ([]Candidate, error) {
	if threshold < 0 || threshold > 1 {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "threshold must be within [0, 1], got %g", threshold)
	}

	var cols []sketched
	for _, t := range db.Tables {
		for _, c := range t.Columns {
			if !c.Profile.HasSketch() {
				continue
			}
			s, err := sketch.Deserialize(c.Profile.Sketch)
			if err != nil {
				return nil, fmt.Errorf("sketch of %s.%s: %w", t.Name, c.Name, err)
			}
			if s.IsEmpty() {
				continue
			}
			cols = append(cols, sketched{ref: ColumnRef{Table: t.Name, Column: c.Name}, col: c, sketch: s})
		}
	}

	var out []Candidate
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			a, b := cols[i], cols[j]
			if a.ref.Table == b.ref.Table {
				continue
			}
			sim, err := a.sketch.Similarity(b.sketch)
			if err != nil {
				return nil, fmt.Errorf("compare %s with %s: %w", a.ref, b.ref, err)
			}
			if sim < threshold {
				continue
			}
			if a.col.IsPrimaryKey && !b.col.IsPrimaryKey {
				a, b = b, a
			}
			out = append(out, Candidate{
				From:       a.ref,
				To:         b.ref,
				Similarity: sim,
				Declared:   references(a, b) || references(b, a),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	return out, nil
}

func references(from, to sketched) bool {
	fk := from.col.ForeignKey
	return fk != nil && fk.Table == to.ref.Table && fk.Column == to.ref.Column
}
