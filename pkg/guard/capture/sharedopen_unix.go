//go:build unix

package capture

import (
	"io"
	"os"
)

// openShared opens the source for reading such that the read completes even
// if another process deletes or renames the file concurrently. On POSIX
// systems a plain open suffices: the inode stays alive while the descriptor
// is held.
func openShared(path string) (io.ReadCloser, error) {
	return os.Open(path)
}
