// Package capture implements the capture engine: per-path claims, the
// two-tier protection strategy (exclusive link first, locked streaming copy
// as fallback), bounded retries, and deletion-triggered recovery.
package capture

import "errors"

// Capture error taxonomy. No error here may terminate the guard; each is
// fatal only for the file it concerns.
var (
	// ErrSourceVanished means the file was gone before any protection step
	// could begin. Nothing is recoverable.
	ErrSourceVanished = errors.New("source vanished before capture")

	// ErrFileTooLarge means the source exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")

	// ErrAccessDenied means the source cannot be read with current
	// privileges. Never retried.
	ErrAccessDenied = errors.New("access denied")

	// ErrRetriesExhausted means transient failures persisted past the
	// configured attempt cap.
	ErrRetriesExhausted = errors.New("retries exhausted")
)
