package executor

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/lift/datamodel"
	"github.com/satishbabariya/lift/migrate/calculator"
	"github.com/satishbabariya/lift/migrate/dialect"
	"github.com/satishbabariya/lift/migrate/errs"
	"github.com/satishbabariya/lift/migrate/planner"
	"github.com/satishbabariya/lift/migrate/schema"
	"github.com/satishbabariya/lift/migrate/step"
)

func openSQLite(t *testing.T) *sql.Conn {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "dev.db")+"?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func calculate(t *testing.T, src string) schema.Schema {
	t.Helper()
	s, err := calculator.Calculate(datamodel.MustParseString(src))
	require.NoError(t, err)
	return s
}

func applyAll(t *testing.T, e *Executor, m *planner.Migration) {
	t.Helper()
	for i := 0; i < len(m.Steps); i++ {
		more, err := e.Apply(context.Background(), m, i)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, i+1 < len(m.Steps), more)
	}
}

func unapplyAll(t *testing.T, e *Executor, m *planner.Migration) {
	t.Helper()
	for i := 0; i < len(m.Rollback); i++ {
		_, err := e.Unapply(context.Background(), m, i)
		require.NoError(t, err, "rollback step %d", i)
	}
}

func tableNames(t *testing.T, conn *sql.Conn) []string {
	t.Helper()
	rows, err := conn.QueryContext(context.Background(),
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestExecutor_AppliesOneStepPerIndex(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := &planner.Migration{Steps: step.List{
		step.DropTables{Names: []string{"A", "B"}},
		step.RawSQL{SQL: "SELECT 1"},
	}}
	e := NewExecutor(db, dialect.NewMySQL(), "shop")

	mock.ExpectExec("SET FOREIGN_KEY_CHECKS=0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE `shop`.`A`, `shop`.`B`")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS=1").WillReturnResult(sqlmock.NewResult(0, 0))

	more, err := e.Apply(context.Background(), m, 0)
	require.NoError(t, err)
	assert.True(t, more)
	assert.NoError(t, mock.ExpectationsWereMet())

	cause := errors.New("syntax error")
	mock.ExpectExec("SELECT 1").WillReturnError(cause)
	more, err = e.Apply(context.Background(), m, 1)
	assert.False(t, more)
	require.ErrorIs(t, err, errs.ErrExecution)
	require.ErrorIs(t, err, cause)
	var execErr *errs.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 1, execErr.Index)
	assert.Equal(t, "RawSql", execErr.Step)
	assert.Equal(t, "SELECT 1", execErr.SQL)

	_, err = e.Apply(context.Background(), m, 2)
	assert.ErrorContains(t, err, "out of range")
}

func TestExecutor_RenderPretty(t *testing.T) {
	m := &planner.Migration{
		Steps:    step.List{step.DropTable{Name: "Post"}, step.RawSQL{SQL: "PRAGMA foreign_keys=ON;"}},
		Rollback: step.List{step.RenameTable{Name: "a", NewName: "b"}},
	}
	e := NewExecutor(nil, dialect.NewSQLite(), "main")

	pretty, err := e.RenderPretty(m)
	require.NoError(t, err)
	require.Len(t, pretty, 2)
	assert.Equal(t, step.DropTable{Name: "Post"}, pretty[0].Step)
	assert.Equal(t, []string{`DROP TABLE "main"."Post"`}, pretty[0].SQL)

	rollback, err := e.RenderPrettyRollback(m)
	require.NoError(t, err)
	assert.Equal(t, []string{`ALTER TABLE "main"."a" RENAME TO "b"`}, rollback[0].SQL)
}

func TestExecutor_MySQLRollbackDropsRelatedTables(t *testing.T) {
	target := calculate(t, `
model Blog {
  id    Int    @id
  posts Post[]
}

model Post {
  id   Int   @id
  blog Blog?
}
`)
	m, err := planner.NewPlanner(dialect.NewMySQL(), "app").Infer(schema.Empty(), target, planner.Options{})
	require.NoError(t, err)

	rollback, err := NewExecutor(nil, dialect.NewMySQL(), "app").RenderPrettyRollback(m)
	require.NoError(t, err)
	require.Len(t, rollback, 2)
	for _, s := range rollback {
		require.Equal(t, "DropTable", s.Step.Kind())
		assert.Equal(t, "SET FOREIGN_KEY_CHECKS=0", s.SQL[0])
		assert.Equal(t, "SET FOREIGN_KEY_CHECKS=1", s.SQL[len(s.SQL)-1])
	}
}

const blogV1 = `
model Blog {
  id    Int    @id @default(autoincrement())
  title String
  views Int
  posts Post[]
}

model Post {
  id   Int   @id @default(autoincrement())
  blog Blog?
}
`

const blogV2 = `
model Blog {
  id    Int    @id @default(autoincrement())
  title String
  posts Post[]
  @@index([title])
}

model Post {
  id   Int   @id @default(autoincrement())
  blog Blog?
}
`

func TestExecutor_SQLiteRoundTrip(t *testing.T) {
	conn := openSQLite(t)
	e := NewExecutor(conn, dialect.NewSQLite(), "main")
	p := planner.NewPlanner(dialect.NewSQLite(), "main")

	m, err := p.Infer(schema.Empty(), calculate(t, blogV1), planner.Options{})
	require.NoError(t, err)
	applyAll(t, e, m)
	assert.Equal(t, []string{"Blog", "Post"}, tableNames(t, conn))

	unapplyAll(t, e, m)
	assert.Empty(t, tableNames(t, conn))
}

func TestExecutor_SQLiteRebuildPreservesData(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)
	e := NewExecutor(conn, dialect.NewSQLite(), "main")
	p := planner.NewPlanner(dialect.NewSQLite(), "main")

	initial, err := p.Infer(schema.Empty(), calculate(t, blogV1), planner.Options{})
	require.NoError(t, err)
	applyAll(t, e, initial)

	_, err = conn.ExecContext(ctx, `INSERT INTO "Blog" ("title", "views") VALUES ('first', 1), ('second', 2)`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO "Post" ("blog") VALUES (1), (2)`)
	require.NoError(t, err)

	m, err := p.Infer(calculate(t, blogV1), calculate(t, blogV2), planner.Options{})
	require.NoError(t, err)
	applyAll(t, e, m)

	var titles []string
	rows, err := conn.QueryContext(ctx, `SELECT "title" FROM "Blog" ORDER BY "id"`)
	require.NoError(t, err)
	for rows.Next() {
		var title string
		require.NoError(t, rows.Scan(&title))
		titles = append(titles, title)
	}
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{"first", "second"}, titles)

	var posts int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT count(*) FROM "Post" WHERE "blog" IS NOT NULL`).Scan(&posts))
	assert.Equal(t, 2, posts)

	var indexes int
	require.NoError(t, conn.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = 'Blog.title._INDEX'`).Scan(&indexes))
	assert.Equal(t, 1, indexes)

	var enabled int
	require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, 1, enabled)
}
