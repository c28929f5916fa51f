package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var (
	// Out receives regular output, Err receives error messages.
	Out io.Writer = os.Stdout
	Err io.Writer = os.Stderr

	// Colors
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	InfoColor      = lipgloss.Color("#00D9FF")
	SecondaryColor = lipgloss.Color("#6C757D")

	// Styles
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)
)

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...any) {
	fmt.Fprintln(Out, SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// PrintError prints an error message
func PrintError(format string, args ...any) {
	fmt.Fprintln(Err, ErrorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...any) {
	fmt.Fprintln(Out, WarningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...any) {
	fmt.Fprintln(Out, InfoStyle.Render("ℹ "+fmt.Sprintf(format, args...)))
}

// PrintTitle prints a bold section title
func PrintTitle(title string) {
	fmt.Fprintln(Out, TitleStyle.Render(title))
}

// PrintStep prints a step indicator
func PrintStep(step int, total int, message string) {
	stepStyle := SecondaryStyle.Render(fmt.Sprintf("[%d/%d]", step, total))
	fmt.Fprintf(Out, "%s %s\n", stepStyle, message)
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Fprintf(Out, "  • %s\n", item)
	}
}

// PrintTable prints a table using pterm
func PrintTable(headers []string, rows [][]string) error {
	tableData := pterm.TableData{headers}
	tableData = append(tableData, rows...)
	return pterm.DefaultTable.WithHasHeader().WithWriter(Out).WithData(tableData).Render()
}

// RenderMarkdown renders markdown content for the terminal
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(content)
}

// PrintMarkdown renders markdown content to Out
func PrintMarkdown(content string) error {
	out, err := RenderMarkdown(content)
	if err != nil {
		return err
	}
	fmt.Fprint(Out, out)
	return nil
}

// PrintSpinner starts a spinner. Callers stop it with Success or Fail.
func PrintSpinner(message string) (*pterm.SpinnerPrinter, error) {
	return pterm.DefaultSpinner.WithWriter(Out).Start(message)
}

// Confirm asks a yes/no question, defaulting to no.
func Confirm(message string) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok)
	return ok, err
}

var statusColors = map[string]*color.Color{
	"Success":         color.New(color.FgGreen, color.Bold),
	"RollbackSuccess": color.New(color.FgCyan),
	"Failure":         color.New(color.FgRed, color.Bold),
	"RollbackFailure": color.New(color.FgRed),
	"InProgress":      color.New(color.FgYellow),
	"RollingBack":     color.New(color.FgYellow),
	"Pending":         color.New(color.FgWhite),
}

// Status colors a migration status for tables.
func Status(status string) string {
	if c, ok := statusColors[status]; ok {
		return c.Sprint(status)
	}
	return status
}
