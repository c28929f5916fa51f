package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/satishbabariya/lift/cli/internal/ui"
	"github.com/satishbabariya/lift/migrate/executor"
	"github.com/satishbabariya/lift/migrate/planner"
)

// Output formats accepted by --output.
const (
	formatText     = "text"
	formatJSON     = "json"
	formatYAML     = "yaml"
	formatMarkdown = "markdown"
)

type planOutput struct {
	Name        string       `json:"name,omitempty" yaml:"name,omitempty"`
	Destructive bool         `json:"destructive" yaml:"destructive"`
	Warnings    []string     `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Steps       []stepOutput `json:"steps" yaml:"steps"`
	Rollback    []stepOutput `json:"rollback,omitempty" yaml:"rollback,omitempty"`
}

type stepOutput struct {
	Type string   `json:"type" yaml:"type"`
	SQL  []string `json:"sql" yaml:"sql"`
}

func newPlanOutput(name string, m *planner.Migration, forward, rollback []executor.PrettyStep) planOutput {
	out := planOutput{
		Name:        name,
		Destructive: m.Destructive,
		Warnings:    m.Warnings,
		Steps:       stepOutputs(forward),
		Rollback:    stepOutputs(rollback),
	}
	if out.Steps == nil {
		out.Steps = []stepOutput{}
	}
	return out
}

func stepOutputs(steps []executor.PrettyStep) []stepOutput {
	var out []stepOutput
	for _, s := range steps {
		out = append(out, stepOutput{Type: s.Step.Kind(), SQL: s.SQL})
	}
	return out
}

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML, formatMarkdown:
		return nil
	}
	return fmt.Errorf("unknown output format %q, want one of text, json, yaml or markdown", format)
}

// writeStructured writes v as json or yaml. It reports false for other
// formats.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func writePlan(w io.Writer, format string, out planOutput) error {
	if ok, err := writeStructured(w, format, out); ok {
		return err
	}
	if format == formatMarkdown {
		rendered, err := ui.RenderMarkdown(planMarkdown(out))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, rendered)
		return err
	}
	writePlanText(w, out)
	return nil
}

func writePlanText(w io.Writer, out planOutput) {
	if len(out.Steps) == 0 {
		fmt.Fprintln(w, "No changes. The database is in sync with the data model.")
		return
	}
	for _, warning := range out.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	if out.Destructive {
		fmt.Fprintln(w, "warning: this migration drops and recreates every table")
	}
	writeSteps(w, out.Steps)
	if len(out.Rollback) > 0 {
		fmt.Fprintln(w, "\n-- rollback")
		writeSteps(w, out.Rollback)
	}
}

func writeSteps(w io.Writer, steps []stepOutput) {
	for i, s := range steps {
		fmt.Fprintf(w, "-- [%d/%d] %s\n", i+1, len(steps), s.Type)
		for _, stmt := range s.SQL {
			fmt.Fprintf(w, "%s;\n", stmt)
		}
	}
}

func planMarkdown(out planOutput) string {
	var b strings.Builder
	title := "Migration"
	if out.Name != "" {
		title += " " + out.Name
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if len(out.Steps) == 0 {
		b.WriteString("No changes.\n")
		return b.String()
	}
	if out.Destructive || len(out.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		if out.Destructive {
			b.WriteString("- drops and recreates every table\n")
		}
		for _, warning := range out.Warnings {
			fmt.Fprintf(&b, "- %s\n", warning)
		}
		b.WriteString("\n")
	}
	markdownSteps(&b, "Steps", out.Steps)
	if len(out.Rollback) > 0 {
		markdownSteps(&b, "Rollback", out.Rollback)
	}
	return b.String()
}

func markdownSteps(b *strings.Builder, heading string, steps []stepOutput) {
	fmt.Fprintf(b, "## %s\n\n", heading)
	for i, s := range steps {
		fmt.Fprintf(b, "%d. %s\n\n", i+1, s.Type)
		b.WriteString("```sql\n")
		for _, stmt := range s.SQL {
			fmt.Fprintf(b, "%s;\n", stmt)
		}
		b.WriteString("```\n\n")
	}
}
