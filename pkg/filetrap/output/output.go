// Package output renders human-readable status lines for capture outcomes
// and tabular views for the history command.
//
// Every outcome (success, skip, failure, recovery) produces exactly one
// status line; only the guard's diagnostic details go to the log file.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/rcastle/filetrap/pkg/filetrap/types"
)

// Reporter writes one status line per capture outcome.
type Reporter struct {
	w     io.Writer
	quiet bool
}

// NewReporter creates a Reporter writing to w. When quiet is true only
// failures and recoveries are printed.
func NewReporter(w io.Writer, quiet bool) *Reporter {
	return &Reporter{w: w, quiet: quiet}
}

// Banner prints the startup header showing what is being protected.
func (r *Reporter) Banner(watchRoot, backupRoot string) {
	if r.quiet {
		return
	}
	lines := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Watching:"), ValueStyle.Render(watchRoot)),
		fmt.Sprintf("%s %s", LabelStyle.Render("Backup:  "), ValueStyle.Render(backupRoot)),
	}
	fmt.Fprintln(r.w, HeaderBox.Render(strings.Join(lines, "\n")))
}

// Captured reports a normal finalized capture.
func (r *Reporter) Captured(res types.CaptureResult) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.w, "%s %s %s %s\n",
		SuccessStyle.Render("captured"),
		PathStyle.Render(res.SourcePath),
		SizeStyle.Render(humanize.IBytes(uint64(res.SizeBytes))),
		MutedStyle.Render(shortHash(res.SHA256)),
	)
}

// Recovered reports an artifact rescued from staging after deletion.
func (r *Reporter) Recovered(res types.CaptureResult) {
	fmt.Fprintf(r.w, "%s %s %s %s\n",
		RecoveredStyle.Render("recovered"),
		PathStyle.Render(res.SourcePath),
		SizeStyle.Render(humanize.IBytes(uint64(res.SizeBytes))),
		MutedStyle.Render(shortHash(res.SHA256)),
	)
}

// Skipped reports a file intentionally not captured (vanished, too large).
func (r *Reporter) Skipped(path string, reason error) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.w, "%s %s %s\n",
		WarningStyle.Render("skipped"),
		PathStyle.Render(path),
		MutedStyle.Render(reason.Error()),
	)
}

// Failed reports a capture that could not complete.
func (r *Reporter) Failed(path string, err error) {
	fmt.Fprintf(r.w, "%s %s %s\n",
		ErrorStyle.Render("failed"),
		PathStyle.Render(path),
		MutedStyle.Render(err.Error()),
	)
}

// Deleted reports a deletion with nothing recoverable.
func (r *Reporter) Deleted(path string) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.w, "%s %s\n",
		MutedStyle.Render("deleted"),
		PathStyle.Render(path),
	)
}

// HistoryTable renders past capture records, newest first.
func HistoryTable(results []types.CaptureResult) string {
	if len(results) == 0 {
		return MutedStyle.Render("  No captures recorded\n")
	}

	var sb strings.Builder

	timeHeader := TableHeaderStyle.Render("TIME")
	sizeHeader := TableHeaderStyle.Render("SIZE")
	hashHeader := TableHeaderStyle.Render("SHA256")
	srcHeader := TableHeaderStyle.Render("SOURCE")
	sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n", timeHeader, sizeHeader, hashHeader, srcHeader))

	for _, res := range results {
		size := padLeft(humanize.IBytes(uint64(res.SizeBytes)), 10)
		marker := " "
		if res.Recovered {
			marker = RecoveredStyle.Render("R")
		}
		sb.WriteString(fmt.Sprintf("  %s %s %s  %s  %s\n",
			MutedStyle.Render(res.Timestamp.Format("2006-01-02 15:04:05")),
			marker,
			SizeStyle.Render(size),
			MutedStyle.Render(shortHash(res.SHA256)),
			PathStyle.Render(res.SourcePath),
		))
	}

	return sb.String()
}

// shortHash truncates a hex digest for display.
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// padLeft pads s with spaces on the left to the given width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}
