package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcastle/filetrap/pkg/filetrap/types"
)

// collector gathers events emitted by a running watcher.
type collector struct {
	mu     sync.Mutex
	events []types.ChangeEvent
}

func (c *collector) add(e types.ChangeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) snapshot() []types.ChangeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.ChangeEvent, len(c.events))
	copy(out, c.events)
	return out
}

// waitFor polls until pred is satisfied or the deadline passes.
func (c *collector) waitFor(t *testing.T, pred func([]types.ChangeEvent) bool) []types.ChangeEvent {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		events := c.snapshot()
		if pred(events) {
			return events
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for events; got %v", c.snapshot())
	return nil
}

// startWatcher creates a watcher over root and runs its event loop.
func startWatcher(t *testing.T, root string, exclude []string, ignore ...string) *collector {
	t.Helper()

	w, err := New(exclude, ignore...)
	require.NoError(t, err)
	require.NoError(t, w.Watch(root))

	ctx, cancel := context.WithCancel(context.Background())
	c := &collector{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx, c.add)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		w.Close()
	})
	return c
}

func TestWatch_NonexistentRoot(t *testing.T) {
	w, err := New(nil)
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "missing")))
}

func TestWatch_TracksSubdirectories(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	c := startWatcher(t, root, nil)

	// A write deep in the tree must surface.
	path := filepath.Join(sub, "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	events := c.waitFor(t, func(events []types.ChangeEvent) bool {
		for _, e := range events {
			if e.Path == path && e.Kind == types.KindCreated {
				return true
			}
		}
		return false
	})
	for _, e := range events {
		assert.False(t, e.ObservedAt.IsZero())
	}
}

func TestWatch_NewDirectoryPicksUpFiles(t *testing.T) {
	root := t.TempDir()
	c := startWatcher(t, root, nil)

	// Create a directory after the watch starts, then a file inside it.
	newDir := filepath.Join(root, "later")
	require.NoError(t, os.Mkdir(newDir, 0o755))
	time.Sleep(100 * time.Millisecond) // let the watch attach

	path := filepath.Join(newDir, "inside.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	c.waitFor(t, func(events []types.ChangeEvent) bool {
		for _, e := range events {
			if e.Path == path {
				return true
			}
		}
		return false
	})

	// The directory creation itself must not reach the consumer.
	for _, e := range c.snapshot() {
		assert.NotEqual(t, newDir, e.Path, "directory events are internal")
	}
}

func TestWatch_DeleteEmitsDeleted(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "victim.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	c := startWatcher(t, root, nil)
	require.NoError(t, os.Remove(path))

	c.waitFor(t, func(events []types.ChangeEvent) bool {
		for _, e := range events {
			if e.Path == path && e.Kind == types.KindDeleted {
				return true
			}
		}
		return false
	})
}

func TestWatch_ExclusionsFiltered(t *testing.T) {
	root := t.TempDir()
	c := startWatcher(t, root, []string{"*.tmp", ".DS_Store"})

	excluded := filepath.Join(root, "scratch.tmp")
	kept := filepath.Join(root, "kept.txt")
	require.NoError(t, os.WriteFile(excluded, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0o644))

	events := c.waitFor(t, func(events []types.ChangeEvent) bool {
		for _, e := range events {
			if e.Path == kept {
				return true
			}
		}
		return false
	})
	for _, e := range events {
		assert.NotEqual(t, excluded, e.Path, "excluded patterns must never surface")
	}
}

func TestWatch_IgnoredPrefix(t *testing.T) {
	root := t.TempDir()
	backup := filepath.Join(root, "backup")
	require.NoError(t, os.Mkdir(backup, 0o755))

	c := startWatcher(t, root, nil, backup)

	ignored := filepath.Join(backup, "artifact.txt")
	kept := filepath.Join(root, "kept.txt")
	require.NoError(t, os.WriteFile(ignored, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0o644))

	events := c.waitFor(t, func(events []types.ChangeEvent) bool {
		for _, e := range events {
			if e.Path == kept {
				return true
			}
		}
		return false
	})
	for _, e := range events {
		assert.NotEqual(t, ignored, e.Path, "the backup tree must not feed back into the pipeline")
	}
}

func TestWatcher_CloseIdempotent(t *testing.T) {
	w, err := New(nil)
	require.NoError(t, err)

	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestExcluded(t *testing.T) {
	w := &Watcher{exclude: []string{"*.tmp", ".DS_Store", "*.crdownload"}}

	assert.True(t, w.excluded("/watch/a.tmp"))
	assert.True(t, w.excluded("/watch/deep/nested/.DS_Store"))
	assert.True(t, w.excluded("/watch/movie.mkv.crdownload"))
	assert.False(t, w.excluded("/watch/a.txt"))
	assert.False(t, w.excluded("/watch/tmp.doc"))
}

func TestIsSubPath(t *testing.T) {
	assert.True(t, isSubPath("/a/b/c", "/a/b"))
	assert.False(t, isSubPath("/a/b", "/a/b"))
	assert.False(t, isSubPath("/a/bc", "/a/b"))
}
