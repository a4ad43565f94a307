package render

import (
	"strings"
	"testing"

	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func i64(n int64) *int64     { return &n }
func str(s string) *string   { return &s }
func f64(f float64) *float64 { return &f }

// heroes is a profiled hero table plus an unprofiled join table whose
// power_id reference dangles.
func heroes() *schema.Database {
	return &schema.Database{
		Name: "heroes",
		Tables: []*schema.Table{
			{
				Name:    "hero",
				Profile: &schema.TableProfile{RecordCount: 2},
				Columns: []*schema.Column{
					{
						Name: "id", DeclaredType: "INTEGER", IsPrimaryKey: true,
						Comment: str("Unique hero id"), Samples: []string{"1", "2"},
						Profile: &schema.ColumnProfile{
							NullCount: i64(0), NonNullCount: i64(2), DistinctCount: i64(2),
							MinValue: str("1"), MaxValue: str("2"),
							Sketch: []byte{1, 2, 3},
						},
					},
					{
						Name: "name", DeclaredType: "VARCHAR(100)",
						Samples: []string{"Superman", "Batman"},
						Profile: &schema.ColumnProfile{
							NullCount: i64(0), NonNullCount: i64(2), DistinctCount: i64(2),
							MinValue: str("Batman"), MaxValue: str("Superman"),
							AvgCharLength: f64(7),
							TopK:          []schema.ValueCount{{Value: "Superman", Frequency: 1}, {Value: "Batman", Frequency: 1}},
						},
					},
					{
						Name: "alias", DeclaredType: "TEXT", Nullable: true,
						Profile: &schema.ColumnProfile{
							NullCount: i64(1), NonNullCount: i64(1), DistinctCount: i64(1),
							MinValue: str("Kal-El"), MaxValue: str("Kal-El"),
							AvgCharLength: f64(6),
						},
					},
				},
			},
			{
				Name: "hero_power",
				Columns: []*schema.Column{
					{Name: "hero_id", DeclaredType: "INTEGER", ForeignKey: &schema.ForeignKeyRef{Table: "hero", Column: "id"}},
					{Name: "power_id", DeclaredType: "INTEGER", Nullable: true, ForeignKey: &schema.ForeignKeyRef{Table: "superpower", Column: "id"}},
				},
			},
		},
	}
}

func render(t *testing.T, kind Kind, opts Options) string {
	t.Helper()
	out, err := Render(kind, heroes(), opts)
	require.NoError(t, err)
	return string(out)
}

func TestDDL(t *testing.T) {
	want := `CREATE TABLE hero (
    id INTEGER NOT NULL,  -- Unique hero id; example: [1, 2]; Profile: 100.0% non-null, 2 distinct
    name VARCHAR(100) NOT NULL,  -- example: [Superman, Batman]; Profile: 100.0% non-null, 2 distinct
    alias TEXT,  -- Profile: 50.0% non-null, 1 distinct
    PRIMARY KEY (id)
);

CREATE TABLE hero_power (
    hero_id INTEGER NOT NULL,
    power_id INTEGER,
    FOREIGN KEY (hero_id) REFERENCES hero(id),
    FOREIGN KEY (power_id) REFERENCES superpower(id)
);`
	assert.Equal(t, want, render(t, KindDDL, DefaultOptions()))
}

func TestDDL_Options(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    string
		wantNot []string
	}{
		{
			name:    "comments disabled",
			opts:    Options{IncludeCommentText: true, IncludeExamples: true, IncludeProfiling: true},
			want:    "    id INTEGER NOT NULL,\n",
			wantNot: []string{"--"},
		},
		{
			name:    "comment text only",
			opts:    Options{AllowComments: true, IncludeCommentText: true},
			want:    "    id INTEGER NOT NULL,  -- Unique hero id\n",
			wantNot: []string{"example:", "Profile:"},
		},
		{
			name:    "profiling only",
			opts:    Options{AllowComments: true, IncludeProfiling: true},
			want:    "    name VARCHAR(100) NOT NULL,  -- Profile: 100.0% non-null, 2 distinct\n",
			wantNot: []string{"Unique hero id", "example:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(t, KindDDL, tt.opts)
			assert.Contains(t, got, tt.want)
			for _, s := range tt.wantNot {
				assert.NotContains(t, got, s)
			}
		})
	}
}

func TestMSchema(t *testing.T) {
	want := `[DB_ID] heroes

[Schema]
# Table: hero
(id:INTEGER, Primary Key, Unique hero id, Examples:[1, 2], Profile: 100.0% non-null, 2 distinct values)
(name:VARCHAR(100), the name of the hero, Examples:[Superman, Batman], Profile: 100.0% non-null, 2 distinct values)
(alias:TEXT, the alias of the hero, Profile: 50.0% non-null, 1 distinct values)

# Table: hero_power
(hero_id:INTEGER, the hero id of the hero_power, Maps to hero(id))
(power_id:INTEGER, the power id of the hero_power, Maps to superpower(id))

[Foreign keys]
hero_power.hero_id = hero.id
hero_power.power_id = superpower.id`
	assert.Equal(t, want, render(t, KindMSchema, DefaultOptions()))
}

func TestMacSQL(t *testing.T) {
	want := `# Table: hero (2 rows)
[
(id, Unique hero id. Value examples: ['1', '2'].) (Profile: 100.0% non-null, 2 distinct, min='1', max='2')
(name, the name of the hero. Value examples: ['Superman', 'Batman'].) (Profile: 100.0% non-null, 2 distinct, min='Batman', max='Superman', avg_len=7.0)
(alias, the alias of the hero. Value examples: [].) (Profile: 50.0% non-null, 1 distinct, min='Kal-El', max='Kal-El', avg_len=6.0)
]

# Table: hero_power
[
(hero_id, the hero id of the hero_power. Value examples: [].)
(power_id, the power id of the hero_power. Value examples: [].)
]`
	assert.Equal(t, want, render(t, KindMacSQL, DefaultOptions()))
}

func TestProfileReport(t *testing.T) {
	got := render(t, KindProfileReport, DefaultOptions())

	assert.True(t, strings.HasPrefix(got, "# Data Profiling Report\n\n### Table: `hero`\n*Record Count: 2*\n"))
	assert.Contains(t, got, "| Column Name | Data Type | Profile Details |\n|-------------|-----------|-----------------|\n")
	assert.Contains(t, got, "| id | INTEGER | **Non-Null**: 100.0%<br>**Distinct**: 2<br>**Min**: 1<br>**Max**: 2 |")
	assert.Contains(t, got, "| name | VARCHAR(100) | **Non-Null**: 100.0%<br>**Distinct**: 2<br>**Min**: Batman<br>**Max**: Superman"+
		"<br>**Avg. Len**: 7.00<br>**Top Values**: 'Superman' (1), 'Batman' (1) |")
	assert.Contains(t, got, "| alias | TEXT | **Non-Null**: 50.0%<br>**Distinct**: 1<br>**Min**: Kal-El<br>**Max**: Kal-El<br>**Avg. Len**: 6.00 |")

	assert.Contains(t, got, "### Table: `hero_power`\n*Record Count: N/A*\n")
	assert.Contains(t, got, "| hero_id | INTEGER | *No profile data* |")
	assert.Equal(t, 2, strings.Count(got, "\n---\n"))
}

func TestProfileReport_PartialProfile(t *testing.T) {
	db := &schema.Database{Name: "x", Tables: []*schema.Table{{
		Name:    "t",
		Profile: &schema.TableProfile{RecordCount: 3},
		Columns: []*schema.Column{{
			Name: "note", DeclaredType: "TEXT",
			Profile: &schema.ColumnProfile{
				NullCount: i64(0), NonNullCount: i64(3),
				MinValue: str("a|b"),
				Warnings: []schema.Warning{{Step: "distinct_count", Kind: "timeout", Message: "query timed out"}},
			},
		}},
	}}}

	out, err := Render(KindProfileReport, db, DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, string(out), `**Distinct**: N/A<br>**Min**: a\|b<br>**Max**: N/A<br>**Not computed**: distinct_count |`)
	assert.NotContains(t, string(out), "Avg. Len")
}

func TestYAML(t *testing.T) {
	out := render(t, KindYAML, DefaultOptions())

	var back schema.Database
	require.NoError(t, yaml.Unmarshal([]byte(out), &back))
	assert.Equal(t, "heroes", back.Name)
	require.Len(t, back.Tables, 2)
	assert.Equal(t, int64(2), back.Tables[0].Profile.RecordCount)
	assert.Equal(t, "superpower", back.Tables[1].Columns[1].ForeignKey.Table)
	assert.Nil(t, back.Tables[0].Columns[0].Profile.Sketch)
}

func TestRender_DoesNotMutate(t *testing.T) {
	db := heroes()
	for _, k := range Kinds() {
		_, err := Render(k, db, DefaultOptions())
		require.NoError(t, err, k)
	}
	assert.Equal(t, heroes(), db)
}

func TestRender_UnknownKind(t *testing.T) {
	_, err := Render("html", heroes(), DefaultOptions())
	assert.True(t, errs.IsInvalidInput(err))

	_, err = Render(KindDDL, nil, DefaultOptions())
	assert.True(t, errs.IsInvalidInput(err))

	_, err = ParseKind("html")
	assert.True(t, errs.IsInvalidInput(err))

	k, err := ParseKind("m_schema")
	require.NoError(t, err)
	assert.Equal(t, KindMSchema, k)
}

func TestKindsAndFilenames(t *testing.T) {
	assert.Equal(t, []Kind{KindDDL, KindMSchema, KindMacSQL, KindProfileReport, KindYAML}, Kinds())

	tests := map[Kind]string{
		KindDDL:           "schema.ddl",
		KindMSchema:       "schema.mschema",
		KindMacSQL:        "schema.macsql",
		KindProfileReport: "profile_report.md",
		KindYAML:          "schema.yaml",
		"html":            "schema.html.txt",
	}
	for k, want := range tests {
		assert.Equal(t, want, Filename(k), k)
	}
	assert.Equal(t, "application/yaml", ContentType(KindYAML))
}
