package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/lift/cli/internal/version"
)

// newVersionCommand creates the version command.
func newVersionCommand() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if full {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), info.FullString())
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return err
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "include build details")

	return cmd
}
