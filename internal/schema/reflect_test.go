package schema

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/koustreak/dschema/internal/database"
	"github.com/koustreak/dschema/internal/database/sqlite"
	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T) *sqlite.Driver {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "heroes.db")
	d, err := sqlite.New(context.Background(), database.DefaultConfig(database.DriverSQLite, dsn))
	require.NoError(t, err)
	t.Cleanup(d.Close)

	_, err = d.Raw().Exec(`
		CREATE TABLE hero (
			id   INTEGER PRIMARY KEY,
			name VARCHAR(50)
		);
		CREATE TABLE power (
			id      INTEGER PRIMARY KEY,
			hero_id INTEGER REFERENCES hero(id),
			owner   INTEGER REFERENCES hero,
			label   TEXT NOT NULL
		);
		CREATE TABLE audit_log (entry TEXT);
		INSERT INTO hero (id, name) VALUES (1, 'Superman'), (2, 'Batman');
		INSERT INTO power (id, hero_id, owner, label) VALUES (1, 1, 1, 'flight'), (2, 1, 1, 'flight');`)
	require.NoError(t, err)
	return d
}

func TestReflector_SQLite(t *testing.T) {
	d := newSQLite(t)
	r := NewReflector(d, logger.Nop())

	db, err := r.Reflect(context.Background(), ReflectOptions{
		ExcludeTables: []string{"audit_*"},
		SampleLimit:   5,
	})
	require.NoError(t, err)

	assert.Equal(t, "heroes", db.Name)
	require.Len(t, db.Tables, 2)
	assert.Equal(t, "hero", db.Tables[0].Name)
	assert.Equal(t, "power", db.Tables[1].Name)

	hero := db.Table("hero")
	require.Len(t, hero.Columns, 2)

	id := hero.Column("id")
	assert.Equal(t, "INTEGER", id.DeclaredType)
	assert.True(t, id.IsPrimaryKey)
	assert.False(t, id.Nullable)
	assert.ElementsMatch(t, []string{"1", "2"}, id.Samples)

	name := hero.Column("name")
	assert.Equal(t, "VARCHAR(50)", name.DeclaredType)
	assert.True(t, name.Nullable)
	assert.True(t, name.IsTextLike())
	assert.ElementsMatch(t, []string{"Superman", "Batman"}, name.Samples)
	assert.Nil(t, name.Profile)

	power := db.Table("power")
	require.NotNil(t, power.Column("hero_id").ForeignKey)
	assert.Equal(t, ForeignKeyRef{Table: "hero", Column: "id"}, *power.Column("hero_id").ForeignKey)
	require.NotNil(t, power.Column("owner").ForeignKey)
	assert.Equal(t, "id", power.Column("owner").ForeignKey.Column)
	assert.False(t, power.Column("label").Nullable)
	assert.Equal(t, []string{"flight"}, power.Column("label").Samples)

	assert.Empty(t, db.DanglingReferences())
}

func TestReflector_IncludeLeavesDanglingReference(t *testing.T) {
	d := newSQLite(t)

	db, err := NewReflector(d, nil).Reflect(context.Background(), ReflectOptions{
		IncludeTables: []string{"power"},
	})
	require.NoError(t, err)

	require.Len(t, db.Tables, 1)
	assert.Empty(t, db.Tables[0].Column("label").Samples)
	assert.Len(t, db.DanglingReferences(), 2)
}

func TestReflector_RejectsBadOptions(t *testing.T) {
	d := newSQLite(t)
	r := NewReflector(d, nil)

	_, err := r.Reflect(context.Background(), ReflectOptions{SampleLimit: -1})
	assert.True(t, errs.IsInvalidInput(err))

	_, err = r.Reflect(context.Background(), ReflectOptions{IncludeTables: []string{"["}})
	assert.True(t, errs.IsInvalidInput(err))
}
