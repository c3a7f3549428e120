package staging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rcastle/filetrap/pkg/filetrap/logging"
	"github.com/rcastle/filetrap/pkg/filetrap/types"
)

// copyBufferSize trades memory for throughput on large files.
const copyBufferSize = 64 * 1024

// Finalize streams the staged bytes to destPath while hashing them, deletes
// the staging artifact, and returns the capture record.
//
// The hash covers the bytes actually copied to the destination, never a
// re-read of the original, which may already be gone.
func Finalize(stagingPath, sourcePath, destPath string, recovered bool) (types.CaptureResult, error) {
	src, err := os.Open(stagingPath)
	if err != nil {
		return types.CaptureResult{}, fmt.Errorf("opening staged artifact: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return types.CaptureResult{}, fmt.Errorf("creating destination directory: %w", err)
	}

	dst, err := os.OpenFile(destPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return types.CaptureResult{}, fmt.Errorf("creating destination file: %w", err)
	}

	hasher := sha256.New()
	buf := make([]byte, copyBufferSize)
	size, err := io.CopyBuffer(io.MultiWriter(dst, hasher), src, buf)
	if err != nil {
		dst.Close()
		_ = os.Remove(destPath) // do not leave a half-written artifact behind
		return types.CaptureResult{}, fmt.Errorf("copying staged bytes: %w", err)
	}

	if err := dst.Close(); err != nil {
		return types.CaptureResult{}, fmt.Errorf("closing destination file: %w", err)
	}

	// Staged artifact removal is best-effort; the capture already succeeded.
	if err := os.Remove(stagingPath); err != nil {
		logging.Get("staging").Warn("failed to remove staged artifact after finalize",
			"path", stagingPath, "error", err)
	}

	return types.CaptureResult{
		SourcePath: sourcePath,
		DestPath:   destPath,
		SizeBytes:  size,
		SHA256:     hex.EncodeToString(hasher.Sum(nil)),
		Timestamp:  time.Now(),
		Recovered:  recovered,
	}, nil
}
