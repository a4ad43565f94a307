package profile

import (
	"context"
	"testing"

	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	d := newSQLite(t, `
		CREATE TABLE hero (id INTEGER PRIMARY KEY, name TEXT);
		CREATE TABLE power (id INTEGER PRIMARY KEY, hero_id INTEGER REFERENCES hero(id), label TEXT);
		INSERT INTO hero VALUES (1, 'Superman'), (2, 'Batman');
		INSERT INTO power VALUES (10, 1, 'flight'), (11, 2, 'strength');`)
	db := reflectSchema(t, d)

	_, err := newProfiler(t, d, nil).ProfileDatabase(context.Background(), db)
	require.NoError(t, err)

	got, err := Candidates(db, 0.9)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	var found *Candidate
	for i := range got {
		if got[i].From.String() == "power.hero_id" {
			found = &got[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, ColumnRef{Table: "hero", Column: "id"}, found.To)
	assert.Equal(t, 1.0, found.Similarity)
	assert.True(t, found.Declared)

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Similarity, got[i].Similarity)
	}
	for _, c := range got {
		assert.NotEqual(t, c.From.Table, c.To.Table)
	}
}

func TestCandidates_IgnoresUnsketchedColumns(t *testing.T) {
	db := &schema.Database{Tables: []*schema.Table{
		{Name: "a", Columns: []*schema.Column{{Name: "x"}}},
		{Name: "b", Columns: []*schema.Column{{Name: "y", Profile: &schema.ColumnProfile{}}}},
	}}
	got, err := Candidates(db, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCandidates_RejectsBadInput(t *testing.T) {
	_, err := Candidates(&schema.Database{}, 1.5)
	assert.True(t, errs.IsInvalidInput(err))

	db := &schema.Database{Tables: []*schema.Table{
		{Name: "a", Columns: []*schema.Column{{Name: "x", Profile: &schema.ColumnProfile{Sketch: []byte{1, 2}}}}},
	}}
	_, err = Candidates(db, 0.5)
	assert.True(t, errs.IsInvalidInput(err))
}
