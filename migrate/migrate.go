// Package migrate plans, persists and applies schema migrations derived
// from a data model.
package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/satishbabariya/lift/datamodel"
	"github.com/satishbabariya/lift/internal/debug"
	"github.com/satishbabariya/lift/migrate/calculator"
	"github.com/satishbabariya/lift/migrate/database"
	"github.com/satishbabariya/lift/migrate/dialect"
	"github.com/satishbabariya/lift/migrate/errs"
	"github.com/satishbabariya/lift/migrate/executor"
	"github.com/satishbabariya/lift/migrate/history"
	"github.com/satishbabariya/lift/migrate/introspect"
	"github.com/satishbabariya/lift/migrate/planner"
)

// WatchName is the reserved migration name used by watch mode. Unlike
// other names it may be created any number of times.
const WatchName = "watch"

var (
	// ErrMigrationExists is returned when creating a migration whose name
	// is already taken.
	ErrMigrationExists = errors.New("migration already exists")
	// ErrInvalidState is returned when a migration is in a state the
	// requested operation cannot start from.
	ErrInvalidState = errors.New("invalid migration state")
)

// ApplyOptions control Apply.
type ApplyOptions struct {
	// AllowDestructive permits migrations that drop and recreate every
	// table.
	AllowDestructive bool
}

// Engine is the main migration engine
type Engine struct {
	closer       func() error
	dialect      dialect.Dialect
	schemaName   string
	history      *history.Manager
	introspector introspect.Introspector
	planner      *planner.Planner
	executor     *executor.Executor
	runner       *executor.MigrationExecutor
}

// New creates an engine running every statement on conn. Session settings
// toggled by migrations only carry over when conn is a single pinned
// connection, see Open.
func New(conn database.Conn, d dialect.Dialect, schemaName string) (*Engine, error) {
	in, err := introspect.New(conn, d)
	if err != nil {
		return nil, err
	}
	exec := executor.NewExecutor(conn, d, schemaName)
	h := history.NewManager(conn, d, schemaName)
	return &Engine{
		closer:       func() error { return nil },
		dialect:      d,
		schemaName:   schemaName,
		history:      h,
		introspector: in,
		planner:      planner.NewPlanner(d, schemaName),
		executor:     exec,
		runner:       executor.NewMigrationExecutor(exec, h),
	}, nil
}

// Open pins a connection of db and creates an engine on it. Close releases
// the connection.
func Open(ctx context.Context, db *database.DB) (*Engine, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	e, err := New(conn, db.Dialect, db.Config.Schema)
	if err != nil {
		conn.Close()
		return nil, err
	}
	e.closer = conn.Close
	return e, nil
}

// Close releases the pinned connection, if any.
func (e *Engine) Close() error {
	return e.closer()
}

// Dialect returns the dialect the engine renders SQL for.
func (e *Engine) Dialect() dialect.Dialect { return e.dialect }

// Init creates the schema namespace and the migration table.
func (e *Engine) Init(ctx context.Context) error {
	if err := e.history.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize migration table: %w", err)
	}
	return nil
}

// Plan introspects the database, calculates the schema of dm and infers
// the migration between them. Nothing is persisted.
func (e *Engine) Plan(ctx context.Context, dm *datamodel.Datamodel) (*planner.Migration, error) {
	m, _, err := e.plan(ctx, dm)
	return m, err
}

func (e *Engine) plan(ctx context.Context, dm *datamodel.Datamodel) (*planner.Migration, []datamodel.Step, error) {
	previous, err := e.appliedDatamodel(ctx)
	if err != nil {
		return nil, nil, err
	}
	steps := datamodel.Diff(previous, dm)

	live, err := e.introspector.Introspect(ctx, e.schemaName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to introspect database: %w", err)
	}
	target, err := calculator.Calculate(dm)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to calculate schema: %w", err)
	}

	m, err := e.planner.Infer(live, target, planner.Options{Renames: datamodel.TableRenames(steps)})
	if err != nil {
		return nil, nil, err
	}
	return m, steps, nil
}

// appliedDatamodel returns the data model of the last successful
// migration, or nil when none was applied yet.
func (e *Engine) appliedDatamodel(ctx context.Context) (*datamodel.Datamodel, error) {
	last, err := e.history.Last(ctx)
	if errors.Is(err, history.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if last.Datamodel == "" {
		return nil, nil
	}
	dm, err := datamodel.ParseString(last.Name, last.Datamodel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse data model of migration %s: %w", last.Name, err)
	}
	return dm, nil
}

// Create plans the migration to dm and stores it as a Pending record.
func (e *Engine) Create(ctx context.Context, name string, dm *datamodel.Datamodel) (*history.Record, error) {
	if name != WatchName {
		_, err := e.history.ByName(ctx, name)
		if err == nil {
			return nil, fmt.Errorf("%w: %s", ErrMigrationExists, name)
		}
		if !errors.Is(err, history.ErrNotFound) {
			return nil, err
		}
	}

	m, steps, err := e.plan(ctx, dm)
	if err != nil {
		return nil, err
	}

	r := &history.Record{
		Name:           name,
		Datamodel:      datamodel.Render(dm),
		Status:         history.StatusPending,
		DatamodelSteps: steps,
		Migration:      m,
	}
	if err := e.history.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to store migration %s: %w", name, err)
	}
	debug.Info("Created migration", "name", name, "revision", r.Revision, "steps", len(m.Steps))
	return r, nil
}

// Apply runs the latest record named name. Pending, InProgress and Failure
// records resume at their first unapplied step; a Success record is left
// alone.
func (e *Engine) Apply(ctx context.Context, name string, opts ApplyOptions) (*history.Record, error) {
	r, err := e.history.ByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load migration %s: %w", name, err)
	}

	switch r.Status {
	case history.StatusSuccess:
		debug.Info("Migration already applied", "name", name)
		return r, nil
	case history.StatusPending, history.StatusInProgress, history.StatusFailure:
	default:
		return r, fmt.Errorf("%w: cannot apply %s in status %s", ErrInvalidState, name, r.Status)
	}

	if r.Migration != nil && r.Migration.Destructive && !opts.AllowDestructive {
		return r, &errs.UnsupportedChangeError{
			Table:  "*",
			Reason: "the migration drops and recreates every table; apply it with destructive changes allowed",
		}
	}

	log := debug.With("run_id", uuid.NewString(), "migration", name)
	log.Info("Applying migration", "revision", r.Revision)
	if err := e.runner.Run(ctx, r); err != nil {
		log.Error("Migration failed", "applied", r.Applied, "error", err)
		return r, err
	}
	log.Info("Migration applied", "steps", r.Applied)
	return r, nil
}

// Rollback walks back the migration named name, or the last successful
// one when name is empty. A Success record is rolled back in place with
// its stored rollback steps. A Failure record left the database somewhere
// in between, so a new record is created that rolls the live schema back
// to the snapshot the failed migration started from.
func (e *Engine) Rollback(ctx context.Context, name string) (*history.Record, error) {
	var (
		r   *history.Record
		err error
	)
	if name == "" {
		r, err = e.history.Last(ctx)
	} else {
		r, err = e.history.ByName(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load migration to roll back: %w", err)
	}

	log := debug.With("run_id", uuid.NewString(), "migration", r.Name)
	switch r.Status {
	case history.StatusSuccess, history.StatusRollingBack, history.StatusRollbackFailure:
	case history.StatusFailure:
		if r, err = e.recoveryRecord(ctx, r); err != nil {
			return nil, err
		}
	default:
		return r, fmt.Errorf("%w: cannot roll back %s in status %s", ErrInvalidState, r.Name, r.Status)
	}

	log.Info("Rolling back migration", "revision", r.Revision)
	if err := e.runner.Rollback(ctx, r); err != nil {
		log.Error("Rollback failed", "rolled_back", r.RolledBack, "error", err)
		return r, err
	}
	log.Info("Migration rolled back", "steps", r.RolledBack)
	return r, nil
}

func (e *Engine) recoveryRecord(ctx context.Context, failed *history.Record) (*history.Record, error) {
	if failed.Migration == nil {
		return nil, executor.ErrNoMigration
	}
	live, err := e.introspector.Introspect(ctx, e.schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect database: %w", err)
	}
	back, err := e.planner.Infer(live, failed.Migration.Before, planner.Options{})
	if err != nil {
		return nil, err
	}

	datamodelText := ""
	if last, err := e.history.Last(ctx); err == nil {
		datamodelText = last.Datamodel
	} else if !errors.Is(err, history.ErrNotFound) {
		return nil, err
	}

	r := &history.Record{
		Name:      failed.Name,
		Datamodel: datamodelText,
		Status:    history.StatusPending,
		Migration: &planner.Migration{
			Before:   live,
			After:    failed.Migration.Before,
			Rollback: back.Steps,
			Warnings: back.Warnings,
		},
	}
	if err := e.history.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to store rollback of %s: %w", failed.Name, err)
	}
	return r, nil
}

// Render returns the SQL of the stored migration named name, forward and
// rollback.
func (e *Engine) Render(ctx context.Context, name string) (forward, rollback []executor.PrettyStep, err error) {
	r, err := e.history.ByName(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if r.Migration == nil {
		return nil, nil, executor.ErrNoMigration
	}
	if forward, err = e.executor.RenderPretty(r.Migration); err != nil {
		return nil, nil, err
	}
	if rollback, err = e.executor.RenderPrettyRollback(r.Migration); err != nil {
		return nil, nil, err
	}
	return forward, rollback, nil
}

// RenderPlan renders the forward steps of an unsaved migration.
func (e *Engine) RenderPlan(m *planner.Migration) ([]executor.PrettyStep, error) {
	return e.executor.RenderPretty(m)
}

// Migration returns the latest record named name.
func (e *Engine) Migration(ctx context.Context, name string) (*history.Record, error) {
	return e.history.ByName(ctx, name)
}

// History returns every migration record, oldest first.
func (e *Engine) History(ctx context.Context) ([]history.Record, error) {
	return e.history.LoadAll(ctx)
}

// Last returns the last successful migration.
func (e *Engine) Last(ctx context.Context) (*history.Record, error) {
	return e.history.Last(ctx)
}

// Reset drops everything in the schema namespace, history included, and
// recreates an empty migration table.
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.history.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	return e.Init(ctx)
}
