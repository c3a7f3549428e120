//go:build windows

package logging

import "os"

// Windows opens the log file without sharing writers, so the handle itself
// serializes cross-process access. Advisory locking is a no-op here.

func lockFile(_ *os.File) error { return nil }

func unlockFile(_ *os.File) {}
