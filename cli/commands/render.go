package commands

import (
	"github.com/spf13/cobra"
)

// newRenderCommand creates the render command.
func newRenderCommand(opts *options) *cobra.Command {
	var name string
	var output string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the SQL of a saved migration",
		Long:  `Print the forward and rollback SQL of the migration saved under --name.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(output); err != nil {
				return err
			}
			return runRender(cmd, opts, name, output)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "name of the migration (required)")
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "output format: text, json, yaml or markdown")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runRender(cmd *cobra.Command, opts *options, name, output string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts.cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := s.engine.Migration(ctx, name)
	if err != nil {
		return err
	}
	forward, rollback, err := s.engine.Render(ctx, name)
	if err != nil {
		return err
	}
	return writePlan(cmd.OutOrStdout(), output, newPlanOutput(name, r.Migration, forward, rollback))
}
