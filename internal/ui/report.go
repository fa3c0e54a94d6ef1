// Package ui renders the doctor subcommand's project-graph/diagnostics
// report. Grounded on pkg/ui/styles.go's lipgloss-based BuildOutput: the
// same palette, the same Box/Table/Divider helpers and Print*-method report
// object, rebuilt around a workspace-health report instead of a single
// file's transpile-step sequence.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary   = lipgloss.Color("#7D56F4")
	colorSecondary = lipgloss.Color("#56C3F4")
	colorSuccess   = lipgloss.Color("#5AF78E")
	colorWarning   = lipgloss.Color("#F7DC6F")
	colorError     = lipgloss.Color("#FF6B9D")
	colorMuted     = lipgloss.Color("#6C7086")
	colorText      = lipgloss.Color("#CDD6F4")
	colorHighlight = lipgloss.Color("#F5E0DC")
)

var (
	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 2).
			MarginBottom(1)

	styleSection = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSecondary).
			MarginTop(1)

	styleFilePath = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true)

	styleRoot = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	styleText    = lipgloss.NewStyle().Foreground(colorText)

	styleSummary = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(colorMuted).
			MarginTop(1).
			PaddingTop(1)

	styleIndent = lipgloss.NewStyle().PaddingLeft(2)
)

// Report accumulates the doctor subcommand's findings and prints them
// section by section, the way BuildOutput accumulates one file's build
// steps before a final summary.
type Report struct {
	projectCount    int
	fileCount       int
	diagnosticCount int
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{}
}

// PrintHeader prints the tool's banner, mirroring BuildOutput.PrintHeader.
func (r *Report) PrintHeader(version string) {
	header := styleHeader.Render("sourcepawn-lsp doctor")
	badge := styleMuted.Render("v" + version)
	fmt.Println(header + " " + badge)
}

// PrintProject prints one connected-component project: its root file and
// every other file reached from it.
func (r *Report) PrintProject(index int, rootPath string, memberPaths []string) {
	r.projectCount++
	r.fileCount += len(memberPaths)

	fmt.Println(styleSection.Render(fmt.Sprintf("Project %d", index+1)))
	fmt.Printf("  %s %s\n", styleMuted.Render("root"), styleRoot.Render(rootPath))
	for _, p := range memberPaths {
		if p == rootPath {
			continue
		}
		fmt.Printf("  %s %s\n", styleMuted.Render("-"), styleFilePath.Render(p))
	}
}

// DiagnosticSeverity mirrors the three wire severities a doctor report cares
// about, without depending on go.lsp.dev/protocol — this package is also
// usable from a future non-LSP caller.
type DiagnosticSeverity int

const (
	SeverityError DiagnosticSeverity = iota
	SeverityWarning
	SeverityInfo
)

// PrintDiagnostic prints one diagnostic line under its file.
func (r *Report) PrintDiagnostic(path string, severity DiagnosticSeverity, message string) {
	r.diagnosticCount++

	var icon, rendered string
	switch severity {
	case SeverityError:
		icon, rendered = "✗", styleError.Render("error")
	case SeverityWarning:
		icon, rendered = "⚠", styleWarning.Render("warning")
	default:
		icon, rendered = "i", styleMuted.Render("info")
	}
	line := fmt.Sprintf("  %s %s: %s %s", icon, rendered, styleText.Render(message), styleMuted.Render("("+path+")"))
	fmt.Println(styleIndent.Render(line))
}

// PrintSummary prints the final project/file/diagnostic counts.
func (r *Report) PrintSummary() {
	var status string
	if r.diagnosticCount == 0 {
		status = styleSuccess.Render("clean")
	} else {
		status = styleWarning.Render(fmt.Sprintf("%d diagnostic(s)", r.diagnosticCount))
	}
	summary := fmt.Sprintf("%s  %s projects, %s files, %s",
		styleMuted.Render("summary:"),
		styleText.Render(fmt.Sprintf("%d", r.projectCount)),
		styleText.Render(fmt.Sprintf("%d", r.fileCount)),
		status,
	)
	fmt.Println(styleSummary.Render(summary))
}

// PrintError prints a fatal error encountered before a report could be built.
func (r *Report) PrintError(msg string) {
	fmt.Println(styleIndent.Render(styleError.Render("✗ ") + msg))
}

// Divider renders a horizontal rule, grounded on pkg/ui/styles.go's Divider.
func Divider() string {
	return styleMuted.Render(strings.Repeat("─", 60))
}
