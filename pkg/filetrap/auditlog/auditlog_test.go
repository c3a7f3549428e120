package auditlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcastle/filetrap/pkg/filetrap/types"
)

func sampleResult() types.CaptureResult {
	return types.CaptureResult{
		SourcePath: "/watch/docs/report.pdf",
		DestPath:   "/backup/docs/report_20260823_154233_017.pdf",
		SizeBytes:  10485760,
		SHA256:     "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		Timestamp:  time.Date(2026, 8, 23, 15, 42, 33, 17*int(time.Millisecond), time.UTC),
	}
}

func TestFormatLine(t *testing.T) {
	want := "2026-08-23 15:42:33.017" +
		"|/watch/docs/report.pdf" +
		"|/backup/docs/report_20260823_154233_017.pdf" +
		"|10485760" +
		"|9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08\n"
	assert.Equal(t, want, FormatLine(sampleResult()))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "capture_2026-08-23.log", FileName(sampleResult()))
}

func TestNew_EmptyDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestAppend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "_logs")

	l, err := New(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)

	res := sampleResult()
	require.NoError(t, l.Append(res))
	require.NoError(t, l.Append(res))

	data, err := os.ReadFile(filepath.Join(dir, "capture_2026-08-23.log"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2, "appends must accumulate, not truncate")
	assert.Equal(t, strings.TrimSuffix(FormatLine(res), "\n"), lines[0])
}

func TestAppend_SplitsByDay(t *testing.T) {
	l, err := New(t.TempDir())
	require.NoError(t, err)

	today := sampleResult()
	tomorrow := sampleResult()
	tomorrow.Timestamp = today.Timestamp.Add(24 * time.Hour)

	require.NoError(t, l.Append(today))
	require.NoError(t, l.Append(tomorrow))

	assert.FileExists(t, filepath.Join(l.Dir(), "capture_2026-08-23.log"))
	assert.FileExists(t, filepath.Join(l.Dir(), "capture_2026-08-24.log"))
}
