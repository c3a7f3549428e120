// Package auditlog writes the append-only capture metadata log: one
// pipe-delimited line per finalized capture, one file per calendar day.
//
// The log is best-effort by contract. A write failure must never abort a
// capture, so callers log and swallow errors from Append.
package auditlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rcastle/filetrap/pkg/filetrap/types"
)

// timestampLayout renders millisecond precision, matching the line format
// YYYY-MM-DD HH:MM:SS.mmm|src|dest|size|sha256.
const timestampLayout = "2006-01-02 15:04:05.000"

// Log appends capture records to daily files under dir. Appends are
// serialized so lines are never interleaved mid-record.
type Log struct {
	dir string
	mu  sync.Mutex
}

// New creates the log directory if needed and returns a Log writing into it.
func New(dir string) (*Log, error) {
	if dir == "" {
		return nil, fmt.Errorf("audit log directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	return &Log{dir: dir}, nil
}

// Dir returns the directory the log writes into.
func (l *Log) Dir() string {
	return l.dir
}

// Append writes one record to the day file matching the result's timestamp.
func (l *Log) Append(res types.CaptureResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := filepath.Join(l.dir, FileName(res))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(res)); err != nil {
		return fmt.Errorf("appending audit record: %w", err)
	}

	return nil
}

// FormatLine renders one newline-terminated audit record.
func FormatLine(res types.CaptureResult) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s\n",
		res.Timestamp.Format(timestampLayout),
		res.SourcePath,
		res.DestPath,
		res.SizeBytes,
		res.SHA256,
	)
}

// FileName returns the daily file name a result belongs to,
// e.g. capture_2026-08-23.log.
func FileName(res types.CaptureResult) string {
	return fmt.Sprintf("capture_%s.log", res.Timestamp.Format("2006-01-02"))
}
