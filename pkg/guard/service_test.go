package guard

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcastle/filetrap/pkg/filetrap/config"
	"github.com/rcastle/filetrap/pkg/filetrap/output"
	"github.com/rcastle/filetrap/pkg/filetrap/types"
	"github.com/rcastle/filetrap/pkg/guard/staging"
)

// newTestService builds a service over temp directories with a short debounce
// window and a buffered reporter.
func newTestService(t *testing.T) (*Service, *config.Config, *bytes.Buffer) {
	t.Helper()

	cfg := &config.Config{
		WatchRoot:     t.TempDir(),
		BackupRoot:    t.TempDir(),
		DebounceMS:    100,
		MaxRetries:    3,
		MaxFileSize:   "512MB",
		CatalogPath:   filepath.Join(t.TempDir(), "catalog"),
		RetentionDays: 90,
	}
	require.NoError(t, cfg.Validate())

	var buf bytes.Buffer
	svc, err := New(cfg, nil, output.NewReporter(&buf, false))
	require.NoError(t, err)
	return svc, cfg, &buf
}

// backupArtifacts lists regular files under the backup root, skipping the
// staging and log directories.
func backupArtifacts(t *testing.T, backupRoot string) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(backupRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			switch filepath.Base(path) {
			case StagingDirName, LogsDirName:
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, path)
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestService_CapturesStableFile(t *testing.T) {
	svc, cfg, _ := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// Let the watcher attach before producing events.
	time.Sleep(200 * time.Millisecond)

	content := []byte("irreplaceable bytes")
	source := filepath.Join(cfg.WatchRoot, "important.txt")
	require.NoError(t, os.WriteFile(source, content, 0o644))

	// Wait for the debounce window plus dispatch to complete.
	var artifacts []string
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		artifacts = backupArtifacts(t, cfg.BackupRoot)
		if len(artifacts) > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	require.NoError(t, <-done)

	require.Len(t, artifacts, 1, "one stable file yields exactly one artifact")
	got, err := os.ReadFile(artifacts[0])
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.True(t, strings.HasPrefix(filepath.Base(artifacts[0]), "important_"))

	// The audit log recorded the capture.
	logs, err := filepath.Glob(filepath.Join(cfg.BackupRoot, LogsDirName, "capture_*.log"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	data, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	fields := strings.Split(line, "|")
	require.Len(t, fields, 5, "audit line: timestamp|src|dest|size|sha256")
	assert.Equal(t, source, fields[1])
	assert.Equal(t, artifacts[0], fields[2])
	assert.Equal(t, "19", fields[3])
	assert.Len(t, fields[4], 64)
}

func TestService_RapidWritesYieldOneArtifact(t *testing.T) {
	svc, cfg, _ := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(200 * time.Millisecond)

	// A burst of writes inside the debounce window.
	source := filepath.Join(cfg.WatchRoot, "busy.txt")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(source, bytes.Repeat([]byte("x"), i+1), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	deadline := time.Now().Add(5 * time.Second)
	var artifacts []string
	for time.Now().Before(deadline) {
		artifacts = backupArtifacts(t, cfg.BackupRoot)
		if len(artifacts) > 0 {
			// Allow a moment for any (incorrect) extra dispatches to land.
			time.Sleep(300 * time.Millisecond)
			artifacts = backupArtifacts(t, cfg.BackupRoot)
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	require.NoError(t, <-done)

	require.Len(t, artifacts, 1, "rapid successive writes coalesce into one capture")
	got, err := os.ReadFile(artifacts[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("xxxxx"), got, "the captured content is the final write")
}

func TestService_RecoversStagedEntryOnDelete(t *testing.T) {
	svc, cfg, buf := newTestService(t)

	// Plant an in-progress staging entry, as if a copy were running when the
	// deletion arrived.
	content := []byte("salvaged mid-copy")
	stagingPath := filepath.Join(cfg.BackupRoot, StagingDirName, "ab12cd34_victim.txt")
	require.NoError(t, os.WriteFile(stagingPath, content, 0o644))

	source := filepath.Join(cfg.WatchRoot, "victim.txt")
	svc.registry.Put(&staging.Entry{
		SourcePath:  source,
		StagingPath: stagingPath,
		CreatedAt:   time.Now(),
	})

	svc.handleDeleted(source)
	svc.wg.Wait()

	artifacts := backupArtifacts(t, cfg.BackupRoot)
	require.Len(t, artifacts, 1)
	assert.Contains(t, filepath.Base(artifacts[0]), "_RECOVERED")

	got, err := os.ReadFile(artifacts[0])
	require.NoError(t, err)
	assert.Equal(t, content, got)

	assert.NoFileExists(t, stagingPath, "the staged artifact is consumed by recovery")
	assert.Contains(t, buf.String(), "recovered")

	// Recovery is recorded in the audit log too.
	logs, err := filepath.Glob(filepath.Join(cfg.BackupRoot, LogsDirName, "capture_*.log"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
}

func TestService_DeleteWithNothingStaged(t *testing.T) {
	svc, cfg, buf := newTestService(t)

	svc.handleDeleted(filepath.Join(cfg.WatchRoot, "never-seen.txt"))
	svc.wg.Wait()

	assert.Empty(t, backupArtifacts(t, cfg.BackupRoot))
	assert.Contains(t, buf.String(), "deleted")
}

func TestService_DeleteCancelsPendingCapture(t *testing.T) {
	svc, cfg, _ := newTestService(t)

	source := filepath.Join(cfg.WatchRoot, "fleeting.txt")
	svc.coalescer.Observe(source, time.Now())
	require.Equal(t, 1, svc.coalescer.Len())

	svc.handleEvent(types.ChangeEvent{Path: source, Kind: types.KindDeleted, ObservedAt: time.Now()})
	svc.wg.Wait()

	assert.Equal(t, 0, svc.coalescer.Len(), "a deletion clears the pending debounce entry")
	assert.Empty(t, backupArtifacts(t, cfg.BackupRoot))
}
