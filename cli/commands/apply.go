package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/lift/cli/internal/ui"
	"github.com/satishbabariya/lift/migrate"
	"github.com/satishbabariya/lift/migrate/history"
)

// errAborted is returned when the user declines a confirmation.
var errAborted = errors.New("aborted")

// newApplyCommand creates the apply command.
func newApplyCommand(opts *options) *cobra.Command {
	var name string
	var force bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a migration",
		Long: `Apply the migration saved under --name. When no migration with that name
exists it is planned from the data model and saved first.

A migration that failed halfway resumes at its first unapplied step.
Migrations that drop and recreate every table ask for confirmation unless
--force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, opts, name, force)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "name of the migration (required)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "apply destructive migrations without asking")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runApply(cmd *cobra.Command, opts *options, name string, force bool) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts.cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := s.engine.Migration(ctx, name)
	if errors.Is(err, history.ErrNotFound) {
		if err := s.requireDatamodel(); err != nil {
			return err
		}
		if r, err = s.engine.Create(ctx, name, s.dm); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if r.Status == history.StatusSuccess {
		ui.PrintInfo("Migration %s is already applied", name)
		return nil
	}
	if r.Migration != nil {
		if r.Migration.IsEmpty() && r.Applied == 0 {
			ui.PrintInfo("Migration %s has no steps", name)
		}
		for _, warning := range r.Migration.Warnings {
			ui.PrintWarning("%s", warning)
		}
		if r.Migration.Destructive && !force {
			ui.PrintWarning("Migration %s drops and recreates every table. All data will be lost.", name)
			ok, err := ui.Confirm("Apply it anyway?")
			if err != nil {
				return err
			}
			if !ok {
				return errAborted
			}
		}
	}

	return applyRecord(cmd, s, name)
}

func applyRecord(cmd *cobra.Command, s *session, name string) error {
	spinner, _ := ui.PrintSpinner(fmt.Sprintf("Applying migration %s...", name))
	r, err := s.engine.Apply(cmd.Context(), name, migrate.ApplyOptions{AllowDestructive: true})
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		if r != nil {
			ui.PrintError("Migration %s stopped after %d of %d steps", name, r.Applied, stepCount(r))
		}
		return err
	}
	ui.PrintSuccess("Applied migration %s (%d steps)", name, r.Applied)
	return nil
}

func stepCount(r *history.Record) int {
	if r.Migration == nil {
		return 0
	}
	return len(r.Migration.Steps)
}

// newRollbackCommand creates the rollback command.
func newRollbackCommand(opts *options) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Roll back a migration",
		Long: `Roll back the migration saved under --name, or the last applied
migration when no name is given. A migration that failed halfway is rolled
back to the schema it started from.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollback(cmd, opts, name)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "name of the migration (default is the last applied one)")

	return cmd
}

func runRollback(cmd *cobra.Command, opts *options, name string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts.cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()

	spinner, _ := ui.PrintSpinner("Rolling back...")
	r, err := s.engine.Rollback(ctx, name)
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		return err
	}
	ui.PrintSuccess("Rolled back migration %s (%d steps)", r.Name, r.RolledBack)
	return nil
}

// newResetCommand creates the reset command.
func newResetCommand(opts *options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every table and the migration history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(cmd, opts, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "reset without asking")

	return cmd
}

func runReset(cmd *cobra.Command, opts *options, force bool) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts.cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if !force {
		ok, err := ui.Confirm(fmt.Sprintf("Drop everything in %s?", s.db.Config.Redacted()))
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
	}
	if err := s.engine.Reset(ctx); err != nil {
		return err
	}
	ui.PrintSuccess("Database reset")
	return nil
}
