//go:build unix

package capture

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

// errBusy is the transient error used by cross-platform engine tests.
var errBusy error = unix.EBUSY

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(unix.EBUSY))
	assert.True(t, isTransient(unix.EAGAIN))
	assert.True(t, isTransient(unix.ETXTBSY))
	assert.True(t, isTransient(unix.EINTR))
	assert.True(t, isTransient(fmt.Errorf("open: %w", unix.EBUSY)), "wrapped errors classify too")

	assert.False(t, isTransient(unix.EACCES))
	assert.False(t, isTransient(errors.New("disk on fire")))
	assert.False(t, isTransient(nil))
}
