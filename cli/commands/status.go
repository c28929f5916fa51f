package commands

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/lift/cli/internal/ui"
	"github.com/satishbabariya/lift/migrate/history"
)

type statusOutput struct {
	Revision   int64      `json:"revision" yaml:"revision"`
	Name       string     `json:"name" yaml:"name"`
	Status     string     `json:"status" yaml:"status"`
	Applied    int        `json:"applied" yaml:"applied"`
	Steps      int        `json:"steps" yaml:"steps"`
	RolledBack int        `json:"rolledBack" yaml:"rolled_back"`
	Errors     []string   `json:"errors,omitempty" yaml:"errors,omitempty"`
	StartedAt  time.Time  `json:"startedAt" yaml:"started_at"`
	FinishedAt *time.Time `json:"finishedAt,omitempty" yaml:"finished_at,omitempty"`
}

// newStatusCommand creates the status command.
func newStatusCommand(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List the migration history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(output); err != nil {
				return err
			}
			return runStatus(cmd, opts, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatText, "output format: text, json or yaml")

	return cmd
}

func runStatus(cmd *cobra.Command, opts *options, output string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts.cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.engine.History(ctx)
	if err != nil {
		return err
	}

	rows := make([]statusOutput, 0, len(records))
	for i := range records {
		rows = append(rows, newStatusOutput(&records[i]))
	}
	if ok, err := writeStructured(cmd.OutOrStdout(), output, rows); ok {
		return err
	}

	if len(rows) == 0 {
		ui.PrintInfo("No migrations yet")
		return nil
	}
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{
			strconv.FormatInt(r.Revision, 10),
			r.Name,
			ui.Status(r.Status),
			strconv.Itoa(r.Applied) + "/" + strconv.Itoa(r.Steps),
			strconv.Itoa(r.RolledBack),
			formatTime(&r.StartedAt),
			formatTime(r.FinishedAt),
		})
	}
	return ui.PrintTable([]string{"Revision", "Name", "Status", "Applied", "Rolled back", "Started", "Finished"}, table)
}

func newStatusOutput(r *history.Record) statusOutput {
	return statusOutput{
		Revision:   r.Revision,
		Name:       r.Name,
		Status:     string(r.Status),
		Applied:    r.Applied,
		Steps:      stepCount(r),
		RolledBack: r.RolledBack,
		Errors:     r.Errors,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
