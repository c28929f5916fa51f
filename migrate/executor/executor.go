// Package executor applies migration steps to a database one index at a
// time.
package executor

import (
	"context"
	"fmt"

	"github.com/satishbabariya/lift/internal/debug"
	"github.com/satishbabariya/lift/migrate/database"
	"github.com/satishbabariya/lift/migrate/dialect"
	"github.com/satishbabariya/lift/migrate/errs"
	"github.com/satishbabariya/lift/migrate/planner"
	"github.com/satishbabariya/lift/migrate/sqlgen"
	"github.com/satishbabariya/lift/migrate/step"
)

// PrettyStep pairs a step with the SQL it renders to.
type PrettyStep struct {
	Step step.Step `json:"step"`
	SQL  []string  `json:"sql"`
}

// Executor renders and executes single migration steps
type Executor struct {
	conn     database.Conn
	renderer *sqlgen.Renderer
}

// NewExecutor creates a new migration executor
func NewExecutor(conn database.Conn, d dialect.Dialect, schemaName string) *Executor {
	return &Executor{conn: conn, renderer: sqlgen.NewRenderer(d, schemaName)}
}

// Apply executes the forward step at index and reports whether a step at
// index+1 exists. Steps must be applied strictly in order.
func (e *Executor) Apply(ctx context.Context, m *planner.Migration, index int) (bool, error) {
	return e.applyStep(ctx, m.Steps, index)
}

// Unapply executes the rollback step at index and reports whether a step
// at index+1 exists.
func (e *Executor) Unapply(ctx context.Context, m *planner.Migration, index int) (bool, error) {
	return e.applyStep(ctx, m.Rollback, index)
}

// RenderPretty renders every forward step without executing anything.
func (e *Executor) RenderPretty(m *planner.Migration) ([]PrettyStep, error) {
	return e.render(m.Steps)
}

// RenderPrettyRollback renders every rollback step without executing anything.
func (e *Executor) RenderPrettyRollback(m *planner.Migration) ([]PrettyStep, error) {
	return e.render(m.Rollback)
}

func (e *Executor) render(steps step.List) ([]PrettyStep, error) {
	out := make([]PrettyStep, 0, len(steps))
	for _, s := range steps {
		stmts, err := e.renderer.Render(s)
		if err != nil {
			return nil, err
		}
		out = append(out, PrettyStep{Step: s, SQL: stmts})
	}
	return out, nil
}

func (e *Executor) applyStep(ctx context.Context, steps step.List, index int) (bool, error) {
	if index < 0 || index >= len(steps) {
		return false, fmt.Errorf("step index %d out of range, migration has %d steps", index, len(steps))
	}
	s := steps[index]
	stmts, err := e.renderer.Render(s)
	if err != nil {
		return false, err
	}

	for _, stmt := range stmts {
		debug.Debug("Executing statement", "index", index, "step", s.Kind(), "sql", stmt)
		if _, err := e.conn.ExecContext(ctx, stmt); err != nil {
			return false, &errs.ExecutionError{Index: index, Step: s.Kind(), SQL: stmt, Err: err}
		}
	}
	return index+1 < len(steps), nil
}
