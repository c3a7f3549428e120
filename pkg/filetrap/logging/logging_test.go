package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"INFO", LevelInfo, false},
		{"verbose", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "error", LevelError.String())
}

func TestGetBeforeInit(t *testing.T) {
	// Loggers obtained before Init must be usable (and silent).
	logger := Get("preinit")
	require.NotNil(t, logger)
	logger.Info("this goes nowhere")
}

func TestInitAndLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filetrap.log")

	require.NoError(t, Init(Config{Level: "debug", Path: path}))
	defer Close()

	logger := Get("capture")
	logger.Info("capture finished", "path", "/watch/report.pdf", "size", 1024)
	logger.Debug("debug detail")

	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "capture finished")
	assert.Contains(t, content, "/watch/report.pdf")
	assert.Contains(t, content, "capture")
	assert.Contains(t, content, "debug detail")
}

func TestInit_InvalidLevel(t *testing.T) {
	err := Init(Config{Level: "loud", Path: filepath.Join(t.TempDir(), "x.log")})
	assert.Error(t, err)
}

func TestComponentLevelOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filetrap.log")

	require.NoError(t, Init(Config{
		Level:      "debug",
		Path:       path,
		Components: map[string]string{"watcher": "error"},
	}))
	defer Close()

	Get("watcher").Info("suppressed by override")
	Get("capture").Info("visible at default level")

	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "suppressed by override")
	assert.Contains(t, string(data), "visible at default level")
}

func TestLoggerWith(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filetrap.log")
	require.NoError(t, Init(Config{Level: "info", Path: path}))
	defer Close()

	Get("guard").With("watch_root", "/watch").Info("guard started")

	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "/watch")
}

func TestDefaultLogPath(t *testing.T) {
	path := DefaultLogPath()
	assert.Contains(t, path, "filetrap")
	assert.Equal(t, "filetrap.log", filepath.Base(path))
}
