package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/lift/migrate/planner"
)

// newPlanCommand creates the plan command.
func newPlanCommand(opts *options) *cobra.Command {
	var name string
	var output string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the migration from the database to the data model",
		Long: `Compare the live database with the data model and print the steps and
SQL needed to bring the database in line.

With --name the migration is also saved, ready for lift apply.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(output); err != nil {
				return err
			}
			return runPlan(cmd, opts, name, output)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "save the migration under this name")
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "output format: text, json, yaml or markdown")

	return cmd
}

func runPlan(cmd *cobra.Command, opts *options, name, output string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts.cfg, true)
	if err != nil {
		return err
	}
	defer s.Close()

	var m *planner.Migration
	if name != "" {
		r, err := s.engine.Create(ctx, name, s.dm)
		if err != nil {
			return err
		}
		m = r.Migration
	} else if m, err = s.engine.Plan(ctx, s.dm); err != nil {
		return err
	}

	forward, err := s.engine.RenderPlan(m)
	if err != nil {
		return err
	}
	return writePlan(cmd.OutOrStdout(), output, newPlanOutput(name, m, forward, nil))
}
