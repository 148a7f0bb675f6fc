// Package output provides terminal output utilities for gallery.
//
// This package includes:
//   - Table rendering for build outcomes, example records, stored run
//     history and execution log events
//   - Progress bars for batches and spinners for single script runs
//   - Human-readable formatting for durations, dates and revisions
//
// Tables use plain columns and ANSI color codes when stdout is a terminal.
// Progress indicators are safe for use from multiple goroutines.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/evalf/examples-gallery/internal/logscan"
	"github.com/evalf/examples-gallery/internal/metadata"
	"github.com/evalf/examples-gallery/internal/pipeline"
	"github.com/evalf/examples-gallery/internal/store"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// padColor pads text to width before coloring so escape codes do not
// break column alignment.
func padColor(color, text string, width int) string {
	return colorize(color, fmt.Sprintf("%-*s", width, text))
}

// RenderOutcomeTable renders the result of a build, one row per example in
// the given order.
func RenderOutcomeTable(outcomes []*pipeline.Outcome) string {
	if len(outcomes) == 0 {
		return "No examples found.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-28s %-17s %-7s %-9s %s\n",
		"Example", "Status", "Images", "Duration", "Detail"))
	sb.WriteString(strings.Repeat("─", 90))
	sb.WriteString("\n")

	for _, o := range outcomes {
		images := "—"
		if o.OK() {
			images = fmt.Sprintf("%d", len(o.Images))
		}
		duration := "—"
		if o.Result != nil {
			duration = formatDuration(o.Result.Duration())
		}
		detail := ""
		if o.Err != nil {
			detail = truncate(firstLine(o.Err.Error()), 60)
		}

		sb.WriteString(fmt.Sprintf("%-28s %s %-7s %-9s %s\n",
			truncate(o.ID, 28),
			padColor(outcomeColor(o), o.Status(), 17),
			images,
			duration,
			detail))
	}
	return sb.String()
}

func outcomeColor(o *pipeline.Outcome) string {
	if o.Interrupted {
		return colorGray
	}
	switch o.Failure {
	case pipeline.FailureNone:
		return colorGreen
	case pipeline.FailureFetch:
		return colorYellow
	case pipeline.FailureMetadata:
		return colorGray
	default:
		return colorRed
	}
}

// OutcomeCounts tallies outcomes by verdict.
type OutcomeCounts struct {
	Passed      int
	Failed      int
	NotVerified int
	Invalid     int
}

// CountOutcomes tallies outcomes by failure kind.
func CountOutcomes(outcomes []*pipeline.Outcome) OutcomeCounts {
	var c OutcomeCounts
	for _, o := range outcomes {
		if o.Interrupted {
			c.NotVerified++
			continue
		}
		switch o.Failure {
		case pipeline.FailureNone:
			c.Passed++
		case pipeline.FailureScript:
			c.Failed++
		case pipeline.FailureFetch:
			c.NotVerified++
		case pipeline.FailureMetadata:
			c.Invalid++
		}
	}
	return c
}

// RenderSummary renders a one-line tally of a build.
// Format: "PASSED: 5 · FAILED: 1 · NOT VERIFIED: 0 · INVALID: 2"
func RenderSummary(outcomes []*pipeline.Outcome) string {
	c := CountOutcomes(outcomes)
	parts := []string{
		colorize(colorGreen, "PASSED") + fmt.Sprintf(": %d", c.Passed),
		colorize(colorRed, "FAILED") + fmt.Sprintf(": %d", c.Failed),
		colorize(colorYellow, "NOT VERIFIED") + fmt.Sprintf(": %d", c.NotVerified),
		colorize(colorGray, "INVALID") + fmt.Sprintf(": %d", c.Invalid),
	}
	return strings.Join(parts, " · ")
}

// RenderRecordTable renders resolved example records.
func RenderRecordTable(records []metadata.Record) string {
	if len(records) == 0 {
		return "No examples found.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-28s %-9s %-14s %-28s %s\n",
		"Example", "Kind", "Revision", "Script", "Tags"))
	sb.WriteString(strings.Repeat("─", 96))
	sb.WriteString("\n")

	for _, rec := range records {
		sb.WriteString(fmt.Sprintf("%-28s %-9s %-14s %-28s %s\n",
			truncate(rec.ID, 28),
			rec.Kind,
			shortRevision(rec.Revision),
			truncate(rec.Script, 28),
			strings.Join(rec.Tags, ", ")))
	}
	return sb.String()
}

// RenderResultsTable renders the latest run per example and image, as
// returned by store.LatestResults.
func RenderResultsTable(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No validation results recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-28s %-26s %-14s %-14s %s\n",
		"Example", "Image", "Status", "Revision", "Finished"))
	sb.WriteString(strings.Repeat("─", 100))
	sb.WriteString("\n")

	for _, run := range runs {
		sb.WriteString(fmt.Sprintf("%-28s %-26s %s %-14s %s\n",
			truncate(run.ExampleID, 28),
			truncate(run.Image, 26),
			padColor(statusColor(run.Status), formatStatus(run.Status), 14),
			shortRevision(run.Revision),
			formatRelativeTime(run.FinishedAt)))
	}
	return sb.String()
}

// RenderRunHistory renders the runs of a single example, newest first.
func RenderRunHistory(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-16s %-26s %-14s %-5s %-7s %-9s %s\n",
		"Finished", "Image", "Status", "Exit", "Images", "Duration", "Message"))
	sb.WriteString(strings.Repeat("─", 100))
	sb.WriteString("\n")

	for _, run := range runs {
		exit := "—"
		if run.ExitCode >= 0 {
			exit = fmt.Sprintf("%d", run.ExitCode)
		}
		sb.WriteString(fmt.Sprintf("%-16s %-26s %s %-5s %-7d %-9s %s\n",
			formatRelativeTime(run.FinishedAt),
			truncate(run.Image, 26),
			padColor(statusColor(run.Status), formatStatus(run.Status), 14),
			exit,
			run.ImageCount,
			formatDuration(run.FinishedAt.Sub(run.StartedAt)),
			truncate(firstLine(run.Message), 40)))
	}
	return sb.String()
}

func formatStatus(s store.Status) string {
	switch s {
	case store.StatusPassed:
		return "✓ passed"
	case store.StatusFailed:
		return "✗ failed"
	case store.StatusFetchFailed:
		return "? unverified"
	case store.StatusSandboxError:
		return "! sandbox"
	default:
		return string(s)
	}
}

func statusColor(s store.Status) string {
	switch s {
	case store.StatusPassed:
		return colorGreen
	case store.StatusFailed:
		return colorRed
	case store.StatusFetchFailed:
		return colorYellow
	default:
		return colorGray
	}
}

// RenderEventTable renders the image events found in an execution log.
// Filenames in selected are marked.
func RenderEventTable(events []logscan.Event, selected []string) string {
	if len(events) == 0 {
		return "No images found in log.\n"
	}

	chosen := make(map[string]bool, len(selected))
	for _, f := range selected {
		chosen[f] = true
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-4s %-20s %-46s %s\n", "#", "Name", "File", "Selected"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for i, ev := range events {
		mark := ""
		if chosen[ev.Filename] {
			mark = colorize(colorGreen, "✓")
		}
		sb.WriteString(fmt.Sprintf("%-4d %-20s %-46s %s\n",
			i+1,
			truncate(ev.Name, 20),
			ev.Filename,
			mark))
	}
	return sb.String()
}

// shortRevision abbreviates commit hashes; branch names are kept.
func shortRevision(rev string) string {
	if rev == "" {
		return "—"
	}
	if len(rev) == 40 && strings.Trim(rev, "0123456789abcdef") == "" {
		return rev[:12]
	}
	return truncate(rev, 14)
}

// formatDuration renders d rounded to a unit that suits its size.
func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "—"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 30*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
