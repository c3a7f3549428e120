package capture

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 8, 23, 15, 42, 33, 17*int(time.Millisecond), time.UTC)

func TestStamp(t *testing.T) {
	assert.Equal(t, "20260823_154233_017", stamp(testTime))
}

func TestStampName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		recovered bool
		want      string
	}{
		{"with extension", "report.pdf", false, "report_20260823_154233_017.pdf"},
		{"no extension", "Makefile", false, "Makefile_20260823_154233_017"},
		{"recovered", "report.pdf", true, "report_20260823_154233_017_RECOVERED.pdf"},
		{"double extension", "archive.tar.gz", false, "archive.tar_20260823_154233_017.gz"},
		{"dotfile", ".env", false, "_20260823_154233_017.env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stampName(tt.input, testTime, tt.recovered))
		})
	}
}

func TestDestinationPath_MirrorsStructure(t *testing.T) {
	dest := destinationPath("/watch", "/backup", "/watch/docs/taxes/report.pdf", testTime, false)
	assert.Equal(t, filepath.Join("/backup", "docs", "taxes", "report_20260823_154233_017.pdf"), dest)
}

func TestDestinationPath_OutsideWatchRoot(t *testing.T) {
	// Paths that escape the watch root fall back to a flat name.
	dest := destinationPath("/watch", "/backup", "/elsewhere/report.pdf", testTime, false)
	assert.Equal(t, filepath.Join("/backup", "report_20260823_154233_017.pdf"), dest)
}

func TestDestinationPath_Collision(t *testing.T) {
	watch := t.TempDir()
	backup := t.TempDir()
	source := filepath.Join(watch, "a.txt")

	first := destinationPath(watch, backup, source, testTime, false)
	require.NoError(t, os.MkdirAll(filepath.Dir(first), 0o755))
	require.NoError(t, os.WriteFile(first, []byte("x"), 0o644))

	second := destinationPath(watch, backup, source, testTime, false)
	assert.NotEqual(t, first, second)

	// The disambiguating token sits between the stamp and the extension.
	assert.Regexp(t, regexp.MustCompile(`a_20260823_154233_017_[0-9a-f]{8}\.txt$`), second)
}

func TestDestinationPath_Recovered(t *testing.T) {
	dest := destinationPath("/watch", "/backup", "/watch/a.txt", testTime, true)
	assert.Equal(t, filepath.Join("/backup", "a_20260823_154233_017_RECOVERED.txt"), dest)
}
