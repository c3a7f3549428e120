//go:build windows

package capture

import (
	"io"
	"os"

	"golang.org/x/sys/windows"
)

// openShared opens the source with the most permissive share mode so the
// read completes even if another process deletes or renames the file
// concurrently. FILE_SHARE_DELETE is the part os.Open does not grant.
func openShared(path string) (io.ReadCloser, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}

	h, err := windows.CreateFile(
		p,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}

	return os.NewFile(uintptr(h), path), nil
}
