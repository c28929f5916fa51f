package calculator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/lift/datamodel"
	"github.com/satishbabariya/lift/migrate/errs"
	"github.com/satishbabariya/lift/migrate/schema"
)

func calculate(t *testing.T, src string) schema.Schema {
	t.Helper()
	s, err := Calculate(datamodel.MustParseString(src))
	require.NoError(t, err)
	return s
}

func table(t *testing.T, s schema.Schema, name string) *schema.Table {
	t.Helper()
	tbl, err := s.Table(name)
	require.NoError(t, err)
	return tbl
}

func TestCalculate_ModelTable(t *testing.T) {
	s := calculate(t, `
model User {
  id        Int      @id @default(autoincrement())
  name      String
  email     String   @unique
  nick      String?
  active    Boolean
  score     Float    @default(1.5)
  role      Role
  createdAt DateTime @default(now())
  bornAt    DateTime @default("2000-01-02T03:04:05Z")
  @@map("users")
}

enum Role {
  USER
  ADMIN
}
`)
	require.Len(t, s.Tables, 1)
	users := table(t, s, "users")

	assert.Equal(t, []string{"active", "bornAt", "createdAt", "email", "id", "name", "nick", "role", "score"}, users.ColumnNames())
	assert.Equal(t, []string{"id"}, users.PrimaryKeyColumns())

	id, _ := users.Column("id")
	assert.True(t, id.AutoIncrement)
	assert.Nil(t, id.Default)

	defaults := map[string]string{
		"active":    "false",
		"bornAt":    "2000-01-02 03:04:05",
		"createdAt": "1970-01-01 00:00:00",
		"email":     "",
		"name":      "",
		"role":      "USER",
		"score":     "1.5",
	}
	for name, want := range defaults {
		col, ok := users.Column(name)
		require.True(t, ok, name)
		require.NotNil(t, col.Default, name)
		assert.Equal(t, want, *col.Default, name)
	}

	nick, _ := users.Column("nick")
	assert.Equal(t, schema.Nullable, nick.Arity)
	role, _ := users.Column("role")
	assert.Equal(t, schema.FamilyString, role.Type.Family)

	assert.Equal(t, []schema.Index{{Name: "users.email._UNIQUE", Columns: []string{"email"}, Unique: true}}, users.Indexes)
}

func TestCalculate_IsDeterministic(t *testing.T) {
	src := `
model A {
  id Int @id
  b  B?
  cs C[]
}
model B {
  id Int @id
  a  A?
}
model C {
  id Int @id
  as A[]
  tags String[]
}
`
	first := calculate(t, src)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, calculate(t, src))
	}
}

func TestCalculate_SelfRelationEmbedsOnField(t *testing.T) {
	s := calculate(t, `
model A {
  id Int @id
  b  A?
}
`)
	a := table(t, s, "A")
	col, ok := a.Column("b")
	require.True(t, ok)
	assert.Equal(t, schema.Nullable, col.Arity)
	assert.Equal(t, []schema.ForeignKey{{
		Columns:           []string{"b"},
		ReferencedTable:   "A",
		ReferencedColumns: []string{"id"},
		OnDelete:          schema.SetNull,
	}}, a.ForeignKeys)
}

func TestCalculate_SelfRelationWithListBackField(t *testing.T) {
	s := calculate(t, `
model Node {
  id       Int    @id
  parent   Node?
  children Node[]
}
`)
	node := table(t, s, "Node")
	assert.True(t, node.HasColumn("parent"))
	assert.False(t, node.HasColumn("children"))
	assert.Len(t, s.Tables, 1)
}

func TestCalculate_OneToOneTieBreak(t *testing.T) {
	src := `
model A {
  id Int @id
  b  B?
}
model B {
  id Int @id
  a  A?
}
`
	for i := 0; i < 3; i++ {
		s := calculate(t, src)
		a := table(t, s, "A")
		b := table(t, s, "B")
		// "a" sorts before "b", so B.a owns the relation
		assert.True(t, b.HasColumn("a"))
		assert.False(t, a.HasColumn("b"))
		assert.Empty(t, a.ForeignKeys)
		assert.Len(t, b.ForeignKeys, 1)
	}
}

func TestCalculate_OneToManyEmbedsOnSingleSide(t *testing.T) {
	s := calculate(t, `
model Blog {
  id    String @id
  posts Post[]
}
model Post {
  id   Int  @id
  blog Blog
}
`)
	post := table(t, s, "Post")
	col, ok := post.Column("blog")
	require.True(t, ok)
	assert.Equal(t, schema.Required, col.Arity)
	assert.Equal(t, schema.FamilyString, col.Type.Family, "fk column takes the referenced id type")
	assert.Len(t, s.Tables, 2)
}

func TestCalculate_ManyToManyCreatesOneJoinTable(t *testing.T) {
	s := calculate(t, `
model A {
  id String @id
  bs B[]
}
model B {
  id Int @id
  as A[]
}
`)
	require.Len(t, s.Tables, 3)
	join := table(t, s, "_AToB")
	assert.True(t, join.Join)
	assert.False(t, table(t, s, "A").Join)
	assert.Equal(t, []string{"A", "B"}, join.ColumnNames())
	assert.Equal(t, []string{"A", "B"}, join.PrimaryKeyColumns())

	colA, _ := join.Column("A")
	colB, _ := join.Column("B")
	assert.Equal(t, schema.FamilyString, colA.Type.Family)
	assert.Equal(t, schema.FamilyInt, colB.Type.Family)

	require.Len(t, join.ForeignKeys, 2)
	assert.Equal(t, "A", join.ForeignKeys[0].ReferencedTable)
	assert.Equal(t, "B", join.ForeignKeys[1].ReferencedTable)
	assert.Equal(t, schema.Cascade, join.ForeignKeys[0].OnDelete)
}

func TestCalculate_ScalarListTable(t *testing.T) {
	s := calculate(t, `
model User {
  id   String @id @map("user_id")
  tags String[]
}
`)
	list := table(t, s, "User_tags")
	assert.Equal(t, []string{"nodeId", "position", "value"}, list.ColumnNames())
	assert.Equal(t, []string{"nodeId", "position"}, list.PrimaryKeyColumns())

	node, _ := list.Column("nodeId")
	assert.Equal(t, schema.FamilyString, node.Type.Family)
	assert.Equal(t, []schema.ForeignKey{{
		Columns:           []string{"nodeId"},
		ReferencedTable:   "User",
		ReferencedColumns: []string{"user_id"},
		OnDelete:          schema.Cascade,
	}}, list.ForeignKeys)
}

func TestCalculate_ModelIndexes(t *testing.T) {
	s := calculate(t, `
model Post {
  id    Int    @id
  slug  String
  owner Int
  @@unique([owner, slug])
  @@index([slug])
}
`)
	post := table(t, s, "Post")
	assert.Equal(t, []schema.Index{
		{Name: "Post.owner_slug._UNIQUE", Columns: []string{"owner", "slug"}, Unique: true},
		{Name: "Post.slug._INDEX", Columns: []string{"slug"}},
	}, post.Indexes)
}

func TestCalculate_LookupErrors(t *testing.T) {
	dm := datamodel.MustParseString(`
model A {
  name String
}
`)
	_, err := Calculate(dm)
	assert.True(t, errors.Is(err, errs.ErrLookup))

	dm = &datamodel.Datamodel{Models: []*datamodel.Model{{
		Name: "A",
		Fields: []*datamodel.Field{
			{Name: "id", Type: datamodel.Int, IsID: true},
			{Name: "b", Kind: datamodel.RelationField, Type: "Missing", Arity: datamodel.Optional},
		},
	}}}
	s, err := Calculate(dm)
	assert.True(t, errors.Is(err, errs.ErrLookup))
	assert.Empty(t, s.Tables, "no partial schema on failure")
}
