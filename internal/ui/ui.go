// Package ui renders the prompt and run outcome for the terminal.
package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"sweeper/internal/sweep"
)

var (
	colorGreen  = lipgloss.Color("#22C55E")
	colorRed    = lipgloss.Color("#EF4444")
	colorYellow = lipgloss.Color("#EAB308")
	colorDim    = lipgloss.Color("#6B7280")

	promptStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(colorGreen).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	detailStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

// Prompt styles the confirmation question
func Prompt(s string) string {
	return promptStyle.Render(s)
}

// Error prints err in the error style
func Error(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("Error: ")+err.Error())
}

// Summary prints the terminal outcome of a run
func Summary(w io.Writer, res *sweep.Result) {
	switch res.State {
	case sweep.StateDeclined:
		fmt.Fprintln(w, warnStyle.Render("Aborted, no files were deleted."))
		return
	case sweep.StateCompleted:
		fmt.Fprintln(w, okStyle.Render(completedHeadline(res)))
	case sweep.StatePartiallyFailed:
		failures := res.Failures()
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("Completed with %d failure(s):", len(failures))))
		for _, f := range failures {
			line := fmt.Sprintf("  %s (%s)", f.Path, f.Reason)
			if f.Err != nil {
				line += ": " + f.Err.Error()
			}
			fmt.Fprintln(w, line)
		}
	default:
		fmt.Fprintf(w, "Run ended in state %s\n", res.State)
		return
	}

	if res.Report != nil {
		fmt.Fprintln(w, detailStyle.Render(details(res)))
	}
}

func completedHeadline(res *sweep.Result) string {
	switch {
	case res.DryRun:
		return "Dry run complete, nothing was deleted."
	case res.Candidates == 0:
		return "No matching files found."
	default:
		return "All matching files removed."
	}
}

func details(res *sweep.Result) string {
	r := res.Report
	parts := []string{fmt.Sprintf("matched=%d", res.Candidates)}
	if res.DryRun {
		parts = append(parts, fmt.Sprintf("would_delete=%d", r.DryRun))
	} else {
		parts = append(parts,
			fmt.Sprintf("deleted=%d", r.Deleted),
			fmt.Sprintf("freed=%s", FormatBytes(r.BytesFreed)),
		)
	}
	if r.AlreadyGone > 0 {
		parts = append(parts, fmt.Sprintf("already_gone=%d", r.AlreadyGone))
	}
	parts = append(parts, fmt.Sprintf("took=%s", res.Duration.Round(time.Millisecond)))
	return strings.Join(parts, " ")
}

// FormatBytes renders a byte count with a binary unit suffix
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
