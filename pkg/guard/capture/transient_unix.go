//go:build unix

package capture

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isTransient reports whether an I/O error is worth retrying with backoff.
// Busy or interrupted conditions clear on their own; anything else is a
// permanent failure for this file.
func isTransient(err error) bool {
	return errors.Is(err, unix.EBUSY) ||
		errors.Is(err, unix.EAGAIN) ||
		errors.Is(err, unix.ETXTBSY) ||
		errors.Is(err, unix.EINTR)
}
