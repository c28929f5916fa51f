package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/lift/migrate/schema"
	"github.com/satishbabariya/lift/migrate/step"
)

func strPtr(s string) *string { return &s }

func TestForName(t *testing.T) {
	for provider, want := range map[string]Name{
		"sqlite":     SQLite,
		"sqlite3":    SQLite,
		"postgres":   Postgres,
		"postgresql": Postgres,
		"MySQL":      MySQL,
	} {
		d, err := ForName(provider)
		require.NoError(t, err, provider)
		assert.Equal(t, want, d.Name())
	}

	_, err := ForName("mongodb")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"main"."Blog"`, NewSQLite().QualifiedName("main", "Blog"))
	assert.Equal(t, `"public"."Blog"`, NewPostgres().QualifiedName("public", "Blog"))
	assert.Equal(t, "`db`.`Blog`", NewMySQL().QualifiedName("db", "Blog"))
	assert.Equal(t, `"Blog"`, NewPostgres().QualifiedName("", "Blog"))

	assert.Equal(t, `"a""b"`, NewSQLite().Quote(`a"b`))
	assert.Equal(t, `"a""b"`, NewPostgres().Quote(`a"b`))
	assert.Equal(t, "`a``b`", NewMySQL().Quote("a`b"))
}

func TestRenderType(t *testing.T) {
	tests := []struct {
		family                  schema.Family
		sqlite, postgres, mysql string
	}{
		{schema.FamilyBoolean, "boolean", "boolean", "boolean"},
		{schema.FamilyInt, "integer", "integer", "int"},
		{schema.FamilyString, "text", "text", "varchar(1000)"},
		{schema.FamilyDateTime, "DATE", "timestamp(3)", "datetime(3)"},
		{schema.FamilyFloat, "Decimal(65,30)", "Decimal(65,30)", "Decimal(65,30)"},
		{schema.FamilyJSON, "text", "jsonb", "json"},
	}
	for _, tt := range tests {
		t.Run(tt.family.String(), func(t *testing.T) {
			c := schema.Column{Type: schema.Pure(tt.family)}
			assert.Equal(t, tt.sqlite, NewSQLite().RenderType(c))
			assert.Equal(t, tt.postgres, NewPostgres().RenderType(c))
			assert.Equal(t, tt.mysql, NewMySQL().RenderType(c))
		})
	}

	serial := schema.Column{Type: schema.Pure(schema.FamilyInt), AutoIncrement: true}
	assert.Equal(t, "SERIAL", NewPostgres().RenderType(serial))

	raw := schema.Column{Type: schema.ColumnType{Raw: "point", Family: schema.FamilyGeometric}}
	assert.Equal(t, "point", NewPostgres().RenderType(raw))
}

func TestRenderDefault(t *testing.T) {
	d := NewPostgres()
	tests := []struct {
		name   string
		column schema.Column
		want   string
		ok     bool
	}{
		{"boolean", schema.Column{Type: schema.Pure(schema.FamilyBoolean), Default: strPtr("false")}, "false", true},
		{"int", schema.Column{Type: schema.Pure(schema.FamilyInt), Default: strPtr("0")}, "0", true},
		{"string escaped", schema.Column{Type: schema.Pure(schema.FamilyString), Default: strPtr("it's")}, "'it''s'", true},
		{"datetime", schema.Column{Type: schema.Pure(schema.FamilyDateTime), Default: strPtr("1970-01-01 00:00:00 UTC")}, "'1970-01-01 00:00:00'", true},
		{"optional column", schema.Column{Type: schema.Pure(schema.FamilyInt), Arity: schema.Nullable, Default: strPtr("0")}, "", false},
		{"no default", schema.Column{Type: schema.Pure(schema.FamilyInt)}, "", false},
		{"autoincrement", schema.Column{Type: schema.Pure(schema.FamilyInt), AutoIncrement: true, Default: strPtr("0")}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := d.RenderDefault(tt.column)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := NewMySQL().RenderDefault(schema.Column{Type: schema.Pure(schema.FamilyJSON), Default: strPtr("{}")})
	assert.False(t, ok)
}

func TestNeedsRebuild(t *testing.T) {
	sqlite := NewSQLite()
	required := step.AddColumn{Column: schema.Column{Name: "a", Arity: schema.Required}}
	optional := step.AddColumn{Column: schema.Column{Name: "a", Arity: schema.Nullable}}

	assert.True(t, sqlite.NeedsRebuild(required))
	assert.False(t, sqlite.NeedsRebuild(optional))
	assert.True(t, sqlite.NeedsRebuild(step.DropColumn{Name: "a"}))
	assert.True(t, sqlite.NeedsRebuild(step.AlterColumn{Name: "a"}))

	for _, d := range []Dialect{NewPostgres(), NewMySQL()} {
		assert.False(t, d.NeedsRebuild(required))
		assert.False(t, d.NeedsRebuild(step.DropColumn{Name: "a"}))
	}
}

func TestColumnFamily(t *testing.T) {
	assert.Equal(t, schema.FamilyInt, NewSQLite().ColumnFamily("INTEGER"))
	assert.Equal(t, schema.FamilyDateTime, NewSQLite().ColumnFamily("DATE"))
	assert.Equal(t, schema.FamilyFloat, NewSQLite().ColumnFamily("Decimal(65,30)"))
	assert.Equal(t, schema.FamilyBoolean, NewSQLite().ColumnFamily("boolean"))

	assert.Equal(t, schema.FamilyString, NewPostgres().ColumnFamily("character varying"))
	assert.Equal(t, schema.FamilyDateTime, NewPostgres().ColumnFamily("timestamp without time zone"))
	assert.Equal(t, schema.FamilyUUID, NewPostgres().ColumnFamily("uuid"))
	assert.Equal(t, schema.FamilyGeometric, NewPostgres().ColumnFamily("point"))
	assert.Equal(t, schema.FamilyUnsupported, NewPostgres().ColumnFamily("tsvector"))

	assert.Equal(t, schema.FamilyBoolean, NewMySQL().ColumnFamily("tinyint(1)"))
	assert.Equal(t, schema.FamilyInt, NewMySQL().ColumnFamily("int(11)"))
	assert.Equal(t, schema.FamilyString, NewMySQL().ColumnFamily("varchar(1000)"))
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "$3", NewPostgres().Placeholder(3))
	assert.Equal(t, "?", NewMySQL().Placeholder(3))
	assert.Equal(t, "?", NewSQLite().Placeholder(1))
}
