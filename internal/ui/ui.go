// Package ui renders CLI output: status lines, code blocks, tables and
// spinners.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/pterm/pterm"
)

var (
	// Out receives regular output.
	Out io.Writer = os.Stdout
	// Err receives error output.
	Err io.Writer = os.Stderr
)

var (
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

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
			Foreground(PrimaryColor)

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

// PrintSection prints a section title with an underline.
func PrintSection(title string) {
	section := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(SecondaryColor).
		Render(TitleStyle.Render(title))
	fmt.Fprintln(Out, section)
}

// PrintCodeBlock prints code in a bordered block, labelled with language.
func PrintCodeBlock(code string, language string) {
	if language != "" {
		fmt.Fprintln(Out, SecondaryStyle.Render(fmt.Sprintf(" %s ", language)))
	}
	block := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(SecondaryColor).
		Padding(0, 1).
		Render(code)
	fmt.Fprintln(Out, block)
}

// PrintTable renders rows under headers.
func PrintTable(headers []string, rows [][]string) error {
	table := tablewriter.NewTable(Out,
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(headers)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// MarkdownTable renders rows as a markdown table.
func MarkdownTable(headers []string, rows [][]string) (string, error) {
	var sb strings.Builder
	table := tablewriter.NewTable(&sb,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(headers)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return "", err
		}
	}
	if err := table.Render(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// PrintMarkdown renders markdown content
func PrintMarkdown(content string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}

	out, err := r.Render(content)
	if err != nil {
		return err
	}
	fmt.Fprint(Out, out)
	return nil
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	p := Printers()
	bullet := p["muted"].Sprint("•")
	for _, item := range items {
		fmt.Fprintf(Out, "  %s %s\n", bullet, p["key"].Sprint(item))
	}
}

// Spinner starts a spinner. It is silent when Out is not stdout.
func Spinner(message string) *pterm.SpinnerPrinter {
	var w io.Writer = os.Stdout
	if Out != os.Stdout {
		w = io.Discard
	}
	s := pterm.DefaultSpinner.WithText(message).WithWriter(w)
	started, err := s.Start()
	if err != nil {
		return s
	}
	return started
}

// Printers returns color printers for plain inline highlighting.
func Printers() map[string]*color.Color {
	return map[string]*color.Color{
		"key":     color.New(color.FgCyan, color.Bold),
		"value":   color.New(color.FgGreen),
		"muted":   color.New(color.FgHiBlack),
		"warning": color.New(color.FgYellow, color.Bold),
	}
}
