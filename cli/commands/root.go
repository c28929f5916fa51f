// Package commands implements the lift command tree.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/lift/cli/internal/config"
	"github.com/satishbabariya/lift/cli/internal/ui"
	"github.com/satishbabariya/lift/cli/internal/version"
	"github.com/satishbabariya/lift/internal/debug"
)

// options are shared by all commands. cfg is loaded before any command
// runs.
type options struct {
	configFile string
	cfg        *config.Config
}

// NewRootCommand creates the lift command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "lift",
		Short: "Database migrations from a data model",
		Long: `lift keeps a database schema in step with a data model file.

It compares the live database with the schema the data model describes,
plans the SQL to get from one to the other, and records every migration
it applies so that it can be resumed or rolled back.`,
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ui.Out = cmd.OutOrStdout()
			ui.Err = cmd.ErrOrStderr()

			cfg, err := config.Load(opts.configFile, cmd.Flags())
			if err != nil {
				return err
			}
			debug.InitWithOptions(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err := version.Check(cfg.RequiredVersion); err != nil {
				return err
			}
			if cfg.File != "" {
				debug.Debug("Using config file", "path", cfg.File)
			}
			opts.cfg = cfg
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default is .lift.yaml)")
	flags.String("datamodel", "", "path to the data model file (default is schema.prisma)")
	flags.String("database-url", "", "database connection URL (default is $DATABASE_URL)")
	flags.String("schema", "", "schema namespace to migrate")
	flags.Bool("debug", false, "enable debug logging")

	cmd.AddCommand(
		newInitCommand(opts),
		newPlanCommand(opts),
		newApplyCommand(opts),
		newRollbackCommand(opts),
		newStatusCommand(opts),
		newResetCommand(opts),
		newRenderCommand(opts),
		newWatchCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// Execute runs the command tree until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		ui.PrintError("%v", err)
		return err
	}
	return nil
}
