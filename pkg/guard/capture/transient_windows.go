//go:build windows

package capture

import (
	"errors"

	"golang.org/x/sys/windows"
)

// isTransient reports whether an I/O error is worth retrying with backoff.
// Sharing and lock violations clear when the other handle closes; anything
// else is a permanent failure for this file.
func isTransient(err error) bool {
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION) ||
		errors.Is(err, windows.ERROR_LOCK_VIOLATION)
}
