package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/lift/migrate/errs"
)

func sample() Schema {
	def := "0"
	return Schema{Tables: []Table{{
		Name: "Post",
		Columns: []Column{
			{Name: "blog", Type: Pure(FamilyInt), Arity: Nullable},
			{Name: "id", Type: Pure(FamilyInt), Default: &def},
		},
		PrimaryKey:  &PrimaryKey{Columns: []string{"id"}},
		Indexes:     []Index{{Name: "Post.blog._INDEX", Columns: []string{"blog"}}},
		ForeignKeys: []ForeignKey{{Columns: []string{"blog"}, ReferencedTable: "Blog", ReferencedColumns: []string{"id"}, OnDelete: SetNull}},
	}}}
}

func TestSchema_Lookups(t *testing.T) {
	s := sample()

	post, err := s.Table("Post")
	require.NoError(t, err)
	assert.True(t, post.HasColumn("blog"))
	assert.True(t, post.IsPrimaryKeyColumn("id"))
	assert.False(t, post.IsPrimaryKeyColumn("blog"))
	assert.Equal(t, []string{"blog", "id"}, post.ColumnNames())
	assert.NotNil(t, post.ForeignKeyFor("blog"))
	assert.Nil(t, post.ForeignKeyFor("id"))

	_, err = s.Table("Missing")
	assert.ErrorIs(t, err, errs.ErrLookup)
	var lookup *errs.LookupError
	require.ErrorAs(t, err, &lookup)
	assert.Equal(t, "Missing", lookup.Name)
}

func TestSchema_CloneIsIndependent(t *testing.T) {
	s := sample()
	c := s.Clone()
	assert.Equal(t, s, c)

	*c.Tables[0].Columns[1].Default = "1"
	c.Tables[0].PrimaryKey.Columns[0] = "other"
	c.Tables[0].ForeignKeys[0].ReferencedColumns[0] = "other"
	c.Tables[0].Indexes[0].Columns[0] = "other"

	assert.Equal(t, "0", *s.Tables[0].Columns[1].Default)
	assert.Equal(t, "id", s.Tables[0].PrimaryKey.Columns[0])
	assert.Equal(t, "id", s.Tables[0].ForeignKeys[0].ReferencedColumns[0])
	assert.Equal(t, "blog", s.Tables[0].Indexes[0].Columns[0])

	assert.Nil(t, Table{Name: "t"}.Clone().Indexes)
}

func TestForeignKey_SameTarget(t *testing.T) {
	a := ForeignKey{Name: "a_fkey", Columns: []string{"blog"}, ReferencedTable: "Blog", ReferencedColumns: []string{"id"}, OnDelete: SetNull}
	b := a
	b.Name = ""
	assert.True(t, a.SameTarget(&b))

	b.OnDelete = Cascade
	assert.False(t, a.SameTarget(&b))

	var none *ForeignKey
	assert.True(t, none.SameTarget(nil))
	assert.False(t, none.SameTarget(&a))
}

func TestTypes_Text(t *testing.T) {
	data, err := json.Marshal(Column{Name: "c", Type: Pure(FamilyJSON), Arity: List})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"c","type":{"family":"Json"},"arity":"List"}`, string(data))

	var c Column
	require.NoError(t, json.Unmarshal(data, &c))
	assert.Equal(t, FamilyJSON, c.Type.Family)

	assert.Error(t, json.Unmarshal([]byte(`{"type":{"family":"Money"}}`), &c))

	for in, want := range map[string]OnDelete{"CASCADE": Cascade, "SET_NULL": SetNull, "r": Restrict, "a": NoAction} {
		got, ok := ParseOnDelete(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseOnDelete("explode")
	assert.False(t, ok)
}
