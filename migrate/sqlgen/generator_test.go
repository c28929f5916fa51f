package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/lift/migrate/dialect"
	"github.com/satishbabariya/lift/migrate/errs"
	"github.com/satishbabariya/lift/migrate/schema"
	"github.com/satishbabariya/lift/migrate/step"
)

func strPtr(s string) *string { return &s }

var blogFK = schema.ForeignKey{
	Columns: []string{"blog"}, ReferencedTable: "Blog", ReferencedColumns: []string{"id"}, OnDelete: schema.SetNull,
}

func postTable() schema.Table {
	return schema.Table{
		Name: "Post",
		Columns: []schema.Column{
			{Name: "blog", Type: schema.Pure(schema.FamilyInt), Arity: schema.Nullable},
			{Name: "id", Type: schema.Pure(schema.FamilyInt), Default: strPtr("0")},
		},
		PrimaryKey:  &schema.PrimaryKey{Columns: []string{"id"}},
		ForeignKeys: []schema.ForeignKey{blogFK},
	}
}

func render(t *testing.T, r *Renderer, s step.Step) []string {
	t.Helper()
	stmts, err := r.Render(s)
	require.NoError(t, err)
	return stmts
}

func TestCreateTable(t *testing.T) {
	tests := []struct {
		name     string
		renderer *Renderer
		want     string
	}{
		{
			name:     "postgres",
			renderer: NewRenderer(dialect.NewPostgres(), "public"),
			want: "CREATE TABLE \"public\".\"Post\" (\n" +
				"  \"blog\" integer REFERENCES \"public\".\"Blog\"(\"id\") ON DELETE SET NULL,\n" +
				"  \"id\" integer NOT NULL DEFAULT 0,\n" +
				"  PRIMARY KEY (\"id\")\n" +
				")",
		},
		{
			name:     "mysql",
			renderer: NewRenderer(dialect.NewMySQL(), "db"),
			want: "CREATE TABLE `db`.`Post` (\n" +
				"  `blog` int,\n" +
				"  `id` int NOT NULL DEFAULT 0,\n" +
				"  PRIMARY KEY (`id`),\n" +
				"  FOREIGN KEY (`blog`) REFERENCES `db`.`Blog`(`id`) ON DELETE SET NULL\n" +
				")",
		},
		{
			name:     "sqlite",
			renderer: NewRenderer(dialect.NewSQLite(), "main"),
			want: "CREATE TABLE \"main\".\"Post\" (\n" +
				"  \"blog\" integer REFERENCES \"Blog\"(\"id\") ON DELETE SET NULL,\n" +
				"  \"id\" integer NOT NULL DEFAULT 0,\n" +
				"  PRIMARY KEY (\"id\")\n" +
				")",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, []string{tt.want}, render(t, tt.renderer, step.CreateTable{Table: postTable()}))
		})
	}
}

func TestCreateTable_AutoIncrement(t *testing.T) {
	table := schema.Table{
		Name: "Blog",
		Columns: []schema.Column{
			{Name: "id", Type: schema.Pure(schema.FamilyInt), AutoIncrement: true},
			{Name: "title", Type: schema.Pure(schema.FamilyString), Default: strPtr("")},
			{Name: "createdAt", Type: schema.Pure(schema.FamilyDateTime), Default: strPtr("1970-01-01 00:00:00 UTC")},
			{Name: "subtitle", Type: schema.Pure(schema.FamilyString), Arity: schema.Nullable, Default: strPtr("ignored")},
		},
		PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
	}

	sqlite := render(t, NewRenderer(dialect.NewSQLite(), "main"), step.CreateTable{Table: table})
	assert.Equal(t, []string{"CREATE TABLE \"main\".\"Blog\" (\n" +
		"  \"id\" integer PRIMARY KEY AUTOINCREMENT NOT NULL,\n" +
		"  \"title\" text NOT NULL DEFAULT '',\n" +
		"  \"createdAt\" DATE NOT NULL DEFAULT '1970-01-01 00:00:00',\n" +
		"  \"subtitle\" text\n" +
		")"}, sqlite)

	pg := render(t, NewRenderer(dialect.NewPostgres(), "public"), step.CreateTable{Table: table})
	assert.Contains(t, pg[0], `"id" SERIAL NOT NULL,`)
	assert.Contains(t, pg[0], `"createdAt" timestamp(3) NOT NULL DEFAULT '1970-01-01 00:00:00'`)
	assert.Contains(t, pg[0], `PRIMARY KEY ("id")`)

	mysql := render(t, NewRenderer(dialect.NewMySQL(), "db"), step.CreateTable{Table: table})
	assert.Contains(t, mysql[0], "`id` int NOT NULL AUTO_INCREMENT,")
	assert.Contains(t, mysql[0], "`title` varchar(1000) NOT NULL DEFAULT ''")
}

func TestCreateTable_CompositeForeignKeys(t *testing.T) {
	join := schema.Table{
		Name: "_AToB",
		Columns: []schema.Column{
			{Name: "A", Type: schema.Pure(schema.FamilyInt)},
			{Name: "B", Type: schema.Pure(schema.FamilyInt)},
		},
		PrimaryKey: &schema.PrimaryKey{Columns: []string{"A", "B"}},
		ForeignKeys: []schema.ForeignKey{
			{Columns: []string{"A"}, ReferencedTable: "A", ReferencedColumns: []string{"id"}, OnDelete: schema.Cascade},
			{Columns: []string{"B"}, ReferencedTable: "B", ReferencedColumns: []string{"id"}, OnDelete: schema.Cascade},
		},
	}
	stmts := render(t, NewRenderer(dialect.NewPostgres(), "public"), step.CreateTable{Table: join})
	assert.Contains(t, stmts[0], `"A" integer NOT NULL REFERENCES "public"."A"("id") ON DELETE CASCADE`)
	assert.Contains(t, stmts[0], `PRIMARY KEY ("A", "B")`)
}

func TestDropTables(t *testing.T) {
	names := step.DropTables{Names: []string{"Blog", "Post"}}

	assert.Equal(t, []string{`DROP TABLE "public"."Blog", "public"."Post" CASCADE`},
		render(t, NewRenderer(dialect.NewPostgres(), "public"), names))
	assert.Equal(t, []string{"SET FOREIGN_KEY_CHECKS=0", "DROP TABLE `db`.`Blog`, `db`.`Post`", "SET FOREIGN_KEY_CHECKS=1"},
		render(t, NewRenderer(dialect.NewMySQL(), "db"), names))
	assert.Equal(t, []string{"PRAGMA foreign_keys=OFF", `DROP TABLE "main"."Blog"`, `DROP TABLE "main"."Post"`, "PRAGMA foreign_keys=ON"},
		render(t, NewRenderer(dialect.NewSQLite(), "main"), names))

	assert.Equal(t, []string{`DROP TABLE "main"."Blog"`},
		render(t, NewRenderer(dialect.NewSQLite(), "main"), step.DropTable{Name: "Blog"}))
	assert.Equal(t, []string{"SET FOREIGN_KEY_CHECKS=0", "DROP TABLE `db`.`Blog`", "SET FOREIGN_KEY_CHECKS=1"},
		render(t, NewRenderer(dialect.NewMySQL(), "db"), step.DropTable{Name: "Blog"}))
	assert.Empty(t, render(t, NewRenderer(dialect.NewSQLite(), "main"), step.DropTables{}))
}

func TestDropRelatedTablesOnMySQL(t *testing.T) {
	post := postTable()
	blog := schema.Table{
		Name:       "Blog",
		Columns:    []schema.Column{{Name: "id", Type: schema.Pure(schema.FamilyInt)}},
		PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
	}
	r := NewRenderer(dialect.NewMySQL(), "app")

	// Blog comes first although Post still references it.
	stmts, err := r.RenderAll(step.List{step.DropTable{Name: blog.Name}, step.DropTable{Name: post.Name}})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"SET FOREIGN_KEY_CHECKS=0", "DROP TABLE `app`.`Blog`", "SET FOREIGN_KEY_CHECKS=1",
		"SET FOREIGN_KEY_CHECKS=0", "DROP TABLE `app`.`Post`", "SET FOREIGN_KEY_CHECKS=1",
	}, stmts)
}

func TestRenameTable(t *testing.T) {
	s := step.RenameTable{Name: "new_Post", NewName: "Post"}
	assert.Equal(t, []string{`ALTER TABLE "main"."new_Post" RENAME TO "Post"`}, render(t, NewRenderer(dialect.NewSQLite(), "main"), s))
	assert.Equal(t, []string{`ALTER TABLE "public"."new_Post" RENAME TO "Post"`}, render(t, NewRenderer(dialect.NewPostgres(), "public"), s))
	assert.Equal(t, []string{"RENAME TABLE `db`.`new_Post` TO `db`.`Post`"}, render(t, NewRenderer(dialect.NewMySQL(), "db"), s))
}

func TestIndexes(t *testing.T) {
	create := step.CreateIndex{Table: "Blog", Index: schema.Index{Name: "Blog.title._UNIQUE", Columns: []string{"title"}, Unique: true}}
	drop := step.DropIndex{Table: "Blog", Name: "Blog.title._UNIQUE"}

	sqlite := NewRenderer(dialect.NewSQLite(), "main")
	assert.Equal(t, []string{`CREATE UNIQUE INDEX "main"."Blog.title._UNIQUE" ON "Blog"("title")`}, render(t, sqlite, create))
	assert.Equal(t, []string{`DROP INDEX "main"."Blog.title._UNIQUE"`}, render(t, sqlite, drop))

	pg := NewRenderer(dialect.NewPostgres(), "public")
	assert.Equal(t, []string{`CREATE UNIQUE INDEX "Blog.title._UNIQUE" ON "public"."Blog"("title")`}, render(t, pg, create))
	assert.Equal(t, []string{`DROP INDEX "public"."Blog.title._UNIQUE"`}, render(t, pg, drop))

	mysql := NewRenderer(dialect.NewMySQL(), "db")
	create.Index.Unique = false
	assert.Equal(t, []string{"CREATE INDEX `Blog.title._UNIQUE` ON `db`.`Blog`(`title`)"}, render(t, mysql, create))
	assert.Equal(t, []string{"DROP INDEX `Blog.title._UNIQUE` ON `db`.`Blog`"}, render(t, mysql, drop))
}

func TestAlterTable_AddColumnWithForeignKey(t *testing.T) {
	fk := blogFK
	add := step.AlterTable{Table: "Post", Changes: []step.TableChange{
		step.AddColumn{Column: schema.Column{Name: "blog", Type: schema.Pure(schema.FamilyInt), Arity: schema.Nullable}, ForeignKey: &fk},
	}}

	assert.Equal(t, []string{`ALTER TABLE "public"."Post" ADD COLUMN "blog" integer REFERENCES "public"."Blog"("id") ON DELETE SET NULL`},
		render(t, NewRenderer(dialect.NewPostgres(), "public"), add))
	assert.Equal(t, []string{"ALTER TABLE `db`.`Post` ADD COLUMN `blog` int,\n  ADD CONSTRAINT FOREIGN KEY (`blog`) REFERENCES `db`.`Blog`(`id`) ON DELETE SET NULL"},
		render(t, NewRenderer(dialect.NewMySQL(), "db"), add))
	assert.Equal(t, []string{`ALTER TABLE "main"."Post" ADD COLUMN "blog" integer REFERENCES "Blog"("id") ON DELETE SET NULL`},
		render(t, NewRenderer(dialect.NewSQLite(), "main"), add))
}

func TestAlterTable_Postgres(t *testing.T) {
	prevFK := blogFK
	prevFK.Name = "Post_blog_fkey"
	alter := step.AlterTable{Table: "Post", Changes: []step.TableChange{
		step.DropColumn{Name: "legacy"},
		step.AlterColumn{
			Name:     "views",
			Column:   schema.Column{Name: "views", Type: schema.Pure(schema.FamilyString), Default: strPtr("")},
			Previous: schema.Column{Name: "views", Type: schema.Pure(schema.FamilyInt), Arity: schema.Nullable},
		},
		step.AlterColumn{
			Name:               "blog",
			Column:             schema.Column{Name: "blog", Type: schema.Pure(schema.FamilyInt), Arity: schema.Nullable},
			Previous:           schema.Column{Name: "blog", Type: schema.Pure(schema.FamilyInt), Arity: schema.Nullable},
			PreviousForeignKey: &prevFK,
		},
	}}

	stmts := render(t, NewRenderer(dialect.NewPostgres(), "public"), alter)
	assert.Equal(t, []string{`ALTER TABLE "public"."Post" DROP COLUMN "legacy",
  ALTER COLUMN "views" SET DATA TYPE text USING "views"::text,
  ALTER COLUMN "views" SET NOT NULL,
  ALTER COLUMN "views" SET DEFAULT '',
  DROP CONSTRAINT "Post_blog_fkey"`}, stmts)
}

func TestAlterTable_MySQL(t *testing.T) {
	prevFK := blogFK
	prevFK.Name = "Post_ibfk_1"
	alter := step.AlterTable{Table: "Post", Changes: []step.TableChange{
		step.DropColumn{Name: "blog", ForeignKey: &prevFK},
		step.AlterColumn{
			Name:     "views",
			Column:   schema.Column{Name: "views", Type: schema.Pure(schema.FamilyInt), Default: strPtr("0")},
			Previous: schema.Column{Name: "views", Type: schema.Pure(schema.FamilyInt), Arity: schema.Nullable},
		},
	}}

	stmts := render(t, NewRenderer(dialect.NewMySQL(), "db"), alter)
	assert.Equal(t, []string{"ALTER TABLE `db`.`Post` DROP FOREIGN KEY `Post_ibfk_1`,\n" +
		"  DROP COLUMN `blog`,\n" +
		"  MODIFY COLUMN `views` int NOT NULL DEFAULT 0"}, stmts)
}

func TestAlterTable_SQLiteRejectsRebuildChanges(t *testing.T) {
	r := NewRenderer(dialect.NewSQLite(), "main")
	_, err := r.Render(step.AlterTable{Table: "Post", Changes: []step.TableChange{step.DropColumn{Name: "legacy"}}})

	require.ErrorIs(t, err, errs.ErrUnsupportedChange)
	var unsupported *errs.UnsupportedChangeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "Post", unsupported.Table)
	assert.Equal(t, "legacy", unsupported.Column)
}

func TestRenderAll(t *testing.T) {
	r := NewRenderer(dialect.NewSQLite(), "main")
	stmts, err := r.RenderAll(step.List{
		step.RawSQL{SQL: "PRAGMA foreign_keys=OFF;"},
		step.DropTable{Name: "Post"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"PRAGMA foreign_keys=OFF;", `DROP TABLE "main"."Post"`}, stmts)
}
