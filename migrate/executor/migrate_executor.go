package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/satishbabariya/lift/internal/debug"
	"github.com/satishbabariya/lift/migrate/history"
)

// ErrNoMigration is returned for records that carry no database migration.
var ErrNoMigration = errors.New("migration record has no database migration")

// MigrationExecutor drives an Executor over a whole migration and persists
// progress in the history after every step, so an interrupted run resumes
// at the first step not yet applied.
type MigrationExecutor struct {
	executor *Executor
	history  *history.Manager
	now      func() time.Time
}

// NewMigrationExecutor creates a new migration executor
func NewMigrationExecutor(e *Executor, h *history.Manager) *MigrationExecutor {
	return &MigrationExecutor{executor: e, history: h, now: time.Now}
}

// Run applies the forward steps of r starting at r.Applied. The record ends
// in Success or Failure. Already applied steps are not run again.
func (e *MigrationExecutor) Run(ctx context.Context, r *history.Record) error {
	m := r.Migration
	if m == nil {
		return ErrNoMigration
	}
	log := debug.With("migration", r.Name, "revision", r.Revision)
	log.Info("Applying migration", "steps", len(m.Steps), "resume_at", r.Applied)

	r.Status = history.StatusInProgress
	if err := e.persist(ctx, r); err != nil {
		return err
	}

	for i := r.Applied; i < len(m.Steps); i++ {
		if _, err := e.executor.Apply(ctx, m, i); err != nil {
			log.Error("Migration step failed", "index", i, "error", err)
			return e.fail(ctx, r, history.StatusFailure, err)
		}
		r.Applied = i + 1
		if err := e.persist(ctx, r); err != nil {
			return err
		}
	}

	return e.finish(ctx, r, history.StatusSuccess)
}

// Rollback runs the rollback steps of r starting at r.RolledBack. The
// record ends in RollbackSuccess or RollbackFailure.
func (e *MigrationExecutor) Rollback(ctx context.Context, r *history.Record) error {
	m := r.Migration
	if m == nil {
		return ErrNoMigration
	}
	log := debug.With("migration", r.Name, "revision", r.Revision)
	log.Info("Rolling back migration", "steps", len(m.Rollback), "resume_at", r.RolledBack)

	r.Status = history.StatusRollingBack
	if err := e.persist(ctx, r); err != nil {
		return err
	}

	for i := r.RolledBack; i < len(m.Rollback); i++ {
		if _, err := e.executor.Unapply(ctx, m, i); err != nil {
			log.Error("Rollback step failed", "index", i, "error", err)
			return e.fail(ctx, r, history.StatusRollbackFailure, err)
		}
		r.RolledBack = i + 1
		if err := e.persist(ctx, r); err != nil {
			return err
		}
	}

	return e.finish(ctx, r, history.StatusRollbackSuccess)
}

func (e *MigrationExecutor) fail(ctx context.Context, r *history.Record, status history.Status, cause error) error {
	r.Errors = append(r.Errors, cause.Error())
	if err := e.finish(ctx, r, status); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (e *MigrationExecutor) finish(ctx context.Context, r *history.Record, status history.Status) error {
	now := e.now()
	r.Status = status
	r.FinishedAt = &now
	return e.persist(ctx, r)
}

func (e *MigrationExecutor) persist(ctx context.Context, r *history.Record) error {
	err := e.history.Update(ctx, history.UpdateParams{
		Name:       r.Name,
		Revision:   r.Revision,
		Status:     r.Status,
		Applied:    r.Applied,
		RolledBack: r.RolledBack,
		Errors:     r.Errors,
		FinishedAt: r.FinishedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to persist progress of %s: %w", r.Name, err)
	}
	return nil
}
