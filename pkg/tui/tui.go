// Package tui renders batch progress and summaries to the terminal.
// Simple streaming output, no full-screen TUI.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// PrintHeader prints the program banner.
func PrintHeader(version string) {
	fmt.Println()
	fmt.Println(titleStyle.Render("  ARENAFLOW") + mutedStyle.Render(" v"+version))
	fmt.Println(mutedStyle.Render("  Session resolver and attributed feature extractor"))
	fmt.Println()
}

// ShowProgress creates a progress bar for a batch run.
func ShowProgress(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// BatchReport summarizes a finished batch run for printing.
type BatchReport struct {
	Total      int
	Resolved   int
	Unresolved int
	Skipped    int
	Duration   time.Duration
}

// PrintBatchReport prints the run summary.
func PrintBatchReport(r *BatchReport) {
	fmt.Println()
	fmt.Println(successStyle.Render("  ✓ BATCH COMPLETE"))
	fmt.Println()
	fmt.Printf("  %s %s\n", mutedStyle.Render("Records:"), titleStyle.Render(fmt.Sprintf("%d", r.Total)))
	fmt.Printf("  %s %s\n", mutedStyle.Render("Resolved:"), successStyle.Render(fmt.Sprintf("%d", r.Resolved)))
	if r.Unresolved > 0 {
		fmt.Printf("  %s %s\n", mutedStyle.Render("Unresolved:"), accentStyle.Render(fmt.Sprintf("%d", r.Unresolved)))
	}
	if r.Skipped > 0 {
		fmt.Printf("  %s %s\n", mutedStyle.Render("Skipped:"), titleStyle.Render(fmt.Sprintf("%d", r.Skipped)))
	}
	if attempted := r.Total - r.Skipped; attempted > 0 {
		rate := float64(r.Resolved) / float64(attempted) * 100
		fmt.Printf("  %s %s\n", mutedStyle.Render("Rate:"), titleStyle.Render(fmt.Sprintf("%.1f%%", rate)))
	}
	if r.Duration > 0 {
		fmt.Printf("  %s %s\n", mutedStyle.Render("Time:"), titleStyle.Render(FormatDuration(r.Duration)))
	}
	fmt.Println()
}

// PrintFailure prints one per-record failure line.
func PrintFailure(record, reason string) {
	fmt.Printf("  %s %s %s\n",
		accentStyle.Render("✗"),
		titleStyle.Render(record),
		mutedStyle.Render(reason))
}

// PrintResolved prints one resolved-record line.
func PrintResolved(record string, composite float64, d time.Duration) {
	fmt.Printf("  %s %s %s\n",
		successStyle.Render("✓"),
		titleStyle.Render(record),
		mutedStyle.Render(fmt.Sprintf("(score %.2f, %s)", composite, FormatDuration(d))))
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
