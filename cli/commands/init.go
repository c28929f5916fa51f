package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/lift/cli/internal/config"
	"github.com/satishbabariya/lift/cli/internal/ui"
	"github.com/satishbabariya/lift/migrate/database"
	"github.com/satishbabariya/lift/migrate/dialect"
)

const datamodelTemplate = `datasource db {
  provider = %q
  url      = env("DATABASE_URL")
}

model User {
  id    Int    @id @default(autoincrement())
  email String @unique
  name  String?
}
`

// newInitCommand creates the init command.
func newInitCommand(opts *options) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a data model, a config file and the migration table",
		Long: `Create a starter data model and a .lift.yaml config file when they do
not exist yet. When a database URL is configured the migration table is
created as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts.cfg, provider)
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "postgresql", "datasource provider: postgresql, mysql or sqlite")

	return cmd
}

func runInit(cmd *cobra.Command, cfg *config.Config, provider string) error {
	d, err := dialect.ForName(provider)
	if err != nil {
		return err
	}

	created, err := writeIfMissing(cfg.Datamodel, fmt.Sprintf(datamodelTemplate, string(d.Name())))
	if err != nil {
		return fmt.Errorf("failed to write data model: %w", err)
	}
	if created {
		ui.PrintSuccess("Created %s", cfg.Datamodel)
	} else {
		ui.PrintInfo("%s already exists", cfg.Datamodel)
	}

	if cfg.File == "" {
		if err := config.Save(cfg, ".lift.yaml"); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		ui.PrintSuccess("Created .lift.yaml")
	}

	s, err := openSession(cmd.Context(), cfg, false)
	if errors.Is(err, database.ErrEmptyURL) {
		ui.PrintInfo("Set DATABASE_URL and run %s to create the migration table", "lift init")
		return nil
	}
	if err != nil {
		return err
	}
	defer s.Close()

	ui.PrintSuccess("Migration table ready in %s", s.db.Config.Redacted())
	return nil
}

// writeIfMissing creates path with content unless it exists.
func writeIfMissing(path, content string) (bool, error) {
	if _, err := config.AppFs.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := config.AppFs.MkdirAll(dir, 0o755); err != nil {
			return false, err
		}
	}
	return true, afero.WriteFile(config.AppFs, path, []byte(content), 0o644)
}
