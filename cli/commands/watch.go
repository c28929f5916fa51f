package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/lift/cli/internal/ui"
	"github.com/satishbabariya/lift/cli/internal/watch"
	"github.com/satishbabariya/lift/migrate"
)

// newWatchCommand creates the watch command.
func newWatchCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Apply data model changes as the file is saved",
		Long: `Watch the data model file and migrate the database every time it
changes. Every change is recorded as a migration named "watch".

Migrations that would drop and recreate every table are never applied in
watch mode.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	return cmd
}

func runWatch(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts.cfg, true)
	if err != nil {
		return err
	}
	defer s.Close()

	w, err := watch.NewWatcher(opts.cfg.Datamodel, func(ctx context.Context) error {
		return watchOnce(ctx, s)
	})
	if err != nil {
		return err
	}

	ui.PrintInfo("Watching %s for changes. Press Ctrl+C to stop.", opts.cfg.Datamodel)
	return w.Run(ctx)
}

// watchOnce reloads the data model and applies whatever changed.
func watchOnce(ctx context.Context, s *session) error {
	if err := s.reloadDatamodel(); err != nil {
		return err
	}
	m, err := s.engine.Plan(ctx, s.dm)
	if err != nil {
		return err
	}
	if m.IsEmpty() {
		ui.PrintInfo("Database is in sync with the data model")
		return nil
	}

	if _, err := s.engine.Create(ctx, migrate.WatchName, s.dm); err != nil {
		return err
	}
	r, err := s.engine.Apply(ctx, migrate.WatchName, migrate.ApplyOptions{})
	if err != nil {
		return err
	}
	for _, warning := range r.Migration.Warnings {
		ui.PrintWarning("%s", warning)
	}
	ui.PrintSuccess("Applied %d steps", r.Applied)
	return nil
}
