package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rcastle/filetrap/pkg/filetrap/logging"
	"github.com/rcastle/filetrap/pkg/filetrap/types"
	"github.com/rcastle/filetrap/pkg/guard/staging"
)

// DefaultRetryBaseDelay is the initial backoff delay; it doubles after each
// failed attempt.
const DefaultRetryBaseDelay = 50 * time.Millisecond

// copyBufferSize for the fallback streaming copy.
const copyBufferSize = 64 * 1024

// Config holds the engine's startup-fixed parameters.
type Config struct {
	WatchRoot      string
	BackupRoot     string
	MaxFileSize    int64
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// Engine captures individual files. Capture is invoked exactly once per
// in-flight claim; the engine itself holds no per-path state beyond the
// staging registry it shares with the recovery path.
type Engine struct {
	cfg      Config
	store    *staging.Store
	registry *staging.Registry
	logger   *logging.Logger

	// Seams for tests and for platforms without a link primitive.
	protect    func(source, stagingPath string) error
	openSource func(path string) (io.ReadCloser, error)
	sleep      func(time.Duration)
	now        func() time.Time
}

// NewEngine creates an engine using hard links as the protection primitive.
func NewEngine(cfg Config, store *staging.Store, registry *staging.Registry) *Engine {
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}
	return &Engine{
		cfg:        cfg,
		store:      store,
		registry:   registry,
		logger:     logging.Get("capture"),
		protect:    os.Link,
		openSource: openShared,
		sleep:      time.Sleep,
		now:        time.Now,
	}
}

// Capture protects and finalizes one file. It returns the capture record on
// success, (nil, nil) when a concurrent deletion diverted the staged bytes
// to the recovery path, and a taxonomy error otherwise.
func (e *Engine) Capture(path string) (*types.CaptureResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return nil, fmt.Errorf("%w: %s", ErrSourceVanished, path)
		case os.IsPermission(err):
			return nil, fmt.Errorf("%w: %s", ErrAccessDenied, path)
		default:
			return nil, fmt.Errorf("stat source: %w", err)
		}
	}

	if e.cfg.MaxFileSize > 0 && info.Size() > e.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, info.Size(), e.cfg.MaxFileSize)
	}

	dest := destinationPath(e.cfg.WatchRoot, e.cfg.BackupRoot, path, e.now(), false)

	var lastErr error
	delay := e.cfg.RetryBaseDelay
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			e.sleep(delay)
			delay *= 2
		}

		res, err := e.attempt(path, info, dest)
		if err == nil {
			return res, nil
		}

		if errors.Is(err, ErrSourceVanished) || errors.Is(err, ErrAccessDenied) {
			return nil, err
		}
		if !isTransient(err) {
			return nil, err
		}

		lastErr = err
		e.logger.Debug("transient capture failure, will retry",
			"path", path, "attempt", attempt+1, "error", err)
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, e.cfg.MaxRetries, lastErr)
}

// attempt runs one pass of the two-tier strategy.
func (e *Engine) attempt(path string, info os.FileInfo, dest string) (*types.CaptureResult, error) {
	stagingPath := e.store.NewPath(path)

	// Primary strategy: an exclusive link pins the content instantly.
	// Any link failure means the capability is unavailable here
	// (cross-volume, unsupported filesystem, permissions), not an error.
	if err := e.protect(path, stagingPath); err == nil {
		e.registry.Put(&staging.Entry{
			SourcePath:  path,
			StagingPath: stagingPath,
			CreatedAt:   e.now(),
		})
		return e.finalizeStaged(path, info, dest)
	} else {
		e.logger.Debug("link protection unavailable, streaming instead",
			"path", path, "error", err)
	}

	// Fallback strategy: locked streaming copy into staging. The source is
	// opened so the read completes even if the file is deleted mid-copy.
	src, err := e.openSource(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return nil, fmt.Errorf("%w: %s", ErrSourceVanished, path)
		case os.IsPermission(err):
			return nil, fmt.Errorf("%w: %s", ErrAccessDenied, path)
		default:
			return nil, fmt.Errorf("opening source: %w", err)
		}
	}
	defer src.Close()

	dst, err := os.OpenFile(stagingPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating staging file: %w", err)
	}

	// The copy-in-progress is registered before streaming so a deletion
	// arriving mid-copy can still salvage what has been written.
	e.registry.Put(&staging.Entry{
		SourcePath:  path,
		StagingPath: stagingPath,
		CreatedAt:   e.now(),
	})

	buf := make([]byte, copyBufferSize)
	_, copyErr := io.CopyBuffer(dst, src, buf)
	if closeErr := dst.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		// Reclaim the entry unless recovery already took the partial copy.
		if entry, ok := e.registry.Take(path); ok {
			e.store.Remove(entry.StagingPath)
		}
		return nil, fmt.Errorf("streaming copy: %w", copyErr)
	}

	return e.finalizeStaged(path, info, dest)
}

// finalizeStaged races the recovery handler for the registered staging
// entry. Whoever takes the entry finalizes; the loser emits nothing, so
// each claim produces at most one record.
func (e *Engine) finalizeStaged(path string, info os.FileInfo, dest string) (*types.CaptureResult, error) {
	entry, ok := e.registry.Take(path)
	if !ok {
		e.logger.Info("capture diverted to recovery", "path", path)
		return nil, nil
	}

	res, err := staging.Finalize(entry.StagingPath, path, dest, false)
	if err != nil {
		e.store.Remove(entry.StagingPath)
		return nil, fmt.Errorf("finalizing capture: %w", err)
	}

	// Preserve the original modification time where obtainable.
	if err := os.Chtimes(res.DestPath, e.now(), info.ModTime()); err != nil {
		e.logger.Warn("failed to preserve timestamps", "path", res.DestPath, "error", err)
	}

	return &res, nil
}

// Recover finalizes a staged artifact whose original was deleted before the
// normal path completed. The caller must have taken the entry from the
// registry; the destination is marked with the recovered suffix.
func (e *Engine) Recover(entry *staging.Entry) (types.CaptureResult, error) {
	dest := destinationPath(e.cfg.WatchRoot, e.cfg.BackupRoot, entry.SourcePath, e.now(), true)

	res, err := staging.Finalize(entry.StagingPath, entry.SourcePath, dest, true)
	if err != nil {
		e.store.Remove(entry.StagingPath)
		return types.CaptureResult{}, fmt.Errorf("finalizing recovery: %w", err)
	}

	return res, nil
}
