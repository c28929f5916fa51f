package executor

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/lift/migrate/dialect"
	"github.com/satishbabariya/lift/migrate/errs"
	"github.com/satishbabariya/lift/migrate/history"
	"github.com/satishbabariya/lift/migrate/planner"
	"github.com/satishbabariya/lift/migrate/schema"
	"github.com/satishbabariya/lift/migrate/step"
)

func newMigrationExecutor(t *testing.T) (*MigrationExecutor, *history.Manager) {
	t.Helper()
	conn := openSQLite(t)
	h := history.NewManager(conn, dialect.NewSQLite(), "main")
	require.NoError(t, h.Init(context.Background()))
	return NewMigrationExecutor(NewExecutor(conn, dialect.NewSQLite(), "main"), h), h
}

func TestMigrationExecutor_RunAndRollback(t *testing.T) {
	ctx := context.Background()
	e, h := newMigrationExecutor(t)
	p := planner.NewPlanner(dialect.NewSQLite(), "main")

	m, err := p.Infer(schema.Empty(), calculate(t, blogV1), planner.Options{})
	require.NoError(t, err)
	r := &history.Record{Name: "init", Migration: m}
	require.NoError(t, h.Create(ctx, r))

	require.NoError(t, e.Run(ctx, r))
	assert.Equal(t, history.StatusSuccess, r.Status)
	assert.Equal(t, len(m.Steps), r.Applied)

	stored, err := h.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, "init", stored.Name)
	assert.Equal(t, len(m.Steps), stored.Applied)
	assert.NotNil(t, stored.FinishedAt)

	require.NoError(t, e.Rollback(ctx, stored))
	stored, err = h.ByName(ctx, "init")
	require.NoError(t, err)
	assert.Equal(t, history.StatusRollbackSuccess, stored.Status)
	assert.Equal(t, len(m.Rollback), stored.RolledBack)
}

func TestMigrationExecutor_ResumesAtFirstUnappliedStep(t *testing.T) {
	ctx := context.Background()
	e, h := newMigrationExecutor(t)

	m := &planner.Migration{Steps: step.List{
		step.RawSQL{SQL: `CREATE TABLE "A" ("id" integer)`},
		step.RawSQL{SQL: `CREATE TABLE "B" ("id" integer)`},
	}}
	r := &history.Record{Name: "resume", Migration: m}
	require.NoError(t, h.Create(ctx, r))

	// The first step ran in an earlier, interrupted attempt.
	_, err := e.executor.Apply(ctx, m, 0)
	require.NoError(t, err)
	r.Applied = 1

	require.NoError(t, e.Run(ctx, r))
	assert.Equal(t, history.StatusSuccess, r.Status)
	assert.Equal(t, 2, r.Applied)
}

// expectUnchangedUpdate mimics MySQL counting changed rows only: rewriting
// the stored values of an existing record affects zero rows.
func expectUnchangedUpdate(mock sqlmock.Sqlmock, name string, revision int64) {
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM `shop`.`_Migration` WHERE name = ? AND revision = ?")).
		WithArgs(name, revision).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
}

func TestMigrationExecutor_ResumesInProgressOnMySQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	d := dialect.NewMySQL()
	e := NewMigrationExecutor(NewExecutor(db, d, "shop"), history.NewManager(db, d, "shop"))
	r := &history.Record{
		Name:     "init",
		Revision: 1,
		Status:   history.StatusInProgress,
		Applied:  1,
		Migration: &planner.Migration{Steps: step.List{
			step.RawSQL{SQL: "CREATE TABLE a (id int)"},
			step.RawSQL{SQL: "CREATE TABLE b (id int)"},
		}},
	}

	expectUnchangedUpdate(mock, "init", 1)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (id int)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, e.Run(context.Background(), r))
	assert.Equal(t, history.StatusSuccess, r.Status)
	assert.Equal(t, 2, r.Applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationExecutor_ResumesRollingBackOnMySQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	d := dialect.NewMySQL()
	e := NewMigrationExecutor(NewExecutor(db, d, "shop"), history.NewManager(db, d, "shop"))
	r := &history.Record{
		Name:       "init",
		Revision:   4,
		Status:     history.StatusRollingBack,
		Applied:    2,
		RolledBack: 1,
		Migration: &planner.Migration{Rollback: step.List{
			step.RawSQL{SQL: "DROP TABLE b"},
			step.RawSQL{SQL: "DROP TABLE a"},
		}},
	}

	expectUnchangedUpdate(mock, "init", 4)
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE a")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, e.Rollback(context.Background(), r))
	assert.Equal(t, history.StatusRollbackSuccess, r.Status)
	assert.Equal(t, 2, r.RolledBack)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationExecutor_RecordsFailure(t *testing.T) {
	ctx := context.Background()
	e, h := newMigrationExecutor(t)

	m := &planner.Migration{Steps: step.List{
		step.RawSQL{SQL: `CREATE TABLE "A" ("id" integer)`},
		step.RawSQL{SQL: `THIS IS NOT SQL`},
		step.RawSQL{SQL: `CREATE TABLE "B" ("id" integer)`},
	}}
	r := &history.Record{Name: "broken", Migration: m}
	require.NoError(t, h.Create(ctx, r))

	err := e.Run(ctx, r)
	require.ErrorIs(t, err, errs.ErrExecution)

	stored, err := h.ByName(ctx, "broken")
	require.NoError(t, err)
	assert.Equal(t, history.StatusFailure, stored.Status)
	assert.Equal(t, 1, stored.Applied)
	require.Len(t, stored.Errors, 1)
	assert.Contains(t, stored.Errors[0], "step 1 (RawSql) failed")
	assert.NotNil(t, stored.FinishedAt)

	_, err = h.Last(ctx)
	assert.ErrorIs(t, err, history.ErrNotFound)
}

func TestMigrationExecutor_RequiresMigration(t *testing.T) {
	e, _ := newMigrationExecutor(t)
	assert.ErrorIs(t, e.Run(context.Background(), &history.Record{Name: "empty"}), ErrNoMigration)
	assert.ErrorIs(t, e.Rollback(context.Background(), &history.Record{Name: "empty"}), ErrNoMigration)
}
