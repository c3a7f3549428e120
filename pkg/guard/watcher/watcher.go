// Package watcher provides recursive filesystem watching for the capture
// pipeline. It delivers file lifecycle events only; directories are managed
// internally and never reach the consumer.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"

	"github.com/rcastle/filetrap/pkg/filetrap/logging"
	"github.com/rcastle/filetrap/pkg/filetrap/types"
)

// EventFunc consumes one file lifecycle event.
type EventFunc func(types.ChangeEvent)

// Watcher watches a directory tree and emits ChangeEvents for files.
type Watcher struct {
	watcher        *fsnotify.Watcher
	paths          map[string]bool
	mu             sync.RWMutex
	closed         bool
	exclude        []string
	ignorePrefixes []string
}

// New creates a Watcher. exclude holds base-name glob patterns that never
// produce events; ignorePrefixes holds directory prefixes (e.g. a backup
// root nested inside the watched tree) that are skipped entirely.
func New(exclude []string, ignorePrefixes ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:        fsw,
		paths:          make(map[string]bool),
		exclude:        exclude,
		ignorePrefixes: ignorePrefixes,
	}, nil
}

// Watch starts watching a path recursively. It adds watches to the root
// directory and all subdirectories. Symlinks are not followed to avoid loops.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return nil // Only watch directories
	}

	conf := fastwalk.Config{
		Follow: false,
	}

	return fastwalk.Walk(&conf, absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}

		// Skip symlinks to avoid loops
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if d.IsDir() {
			if w.ignored(path) {
				return filepath.SkipDir
			}
			return w.addWatch(path)
		}

		return nil
	})
}

// addWatch adds a single directory to the watch list.
func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	// Already watching this path
	if w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		logging.Get("watcher").Warn("failed to add watch", "path", path, "error", err)
		return err
	}

	w.paths[path] = true
	return nil
}

// Run starts the event loop. It blocks until the context is cancelled.
// onEvent receives one ChangeEvent per file lifecycle notification.
func (w *Watcher) Run(ctx context.Context, onEvent EventFunc) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			w.handleEvent(event, onEvent)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get("watcher").Error("watcher error", "error", err)
		}
	}
}

// handleEvent processes a single fsnotify event, maintaining the directory
// watch set and filtering out everything that must not reach the coalescer.
func (w *Watcher) handleEvent(event fsnotify.Event, onEvent EventFunc) {
	path := event.Name

	if w.ignored(path) || w.excluded(path) {
		return
	}

	var kind types.EventKind
	switch {
	case event.Op&fsnotify.Create != 0:
		if w.handleCreateDir(path) {
			return // directory handled internally
		}
		kind = types.KindCreated

	case event.Op&fsnotify.Write != 0:
		if info, err := os.Lstat(path); err != nil || info.IsDir() {
			return
		}
		kind = types.KindModified

	case event.Op&fsnotify.Remove != 0:
		if w.dropDirWatches(path) {
			return // it was a watched directory
		}
		kind = types.KindDeleted

	case event.Op&fsnotify.Rename != 0:
		if w.dropDirWatches(path) {
			return
		}
		kind = types.KindRenamed

	default:
		return
	}

	if onEvent != nil {
		onEvent(types.ChangeEvent{
			Path:       path,
			Kind:       kind,
			ObservedAt: time.Now(),
		})
	}
}

// handleCreateDir adds watches for newly created directories (and any
// subdirectories created with them). Returns true if path is a directory or
// a symlink, both of which are filtered from the event stream.
func (w *Watcher) handleCreateDir(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false // gone already; let the event through as a file
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		return true
	}

	if !info.IsDir() {
		return false
	}

	_ = w.addWatch(path)

	_ = filepath.WalkDir(path, func(subpath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() && subpath != path {
			_ = w.addWatch(subpath)
		}
		return nil
	})

	return true
}

// dropDirWatches removes watches for a deleted or renamed directory and its
// children. Returns true if the path was a watched directory.
func (w *Watcher) dropDirWatches(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	wasDir := w.paths[path]
	if wasDir {
		_ = w.watcher.Remove(path)
		delete(w.paths, path)
	}

	for childPath := range w.paths {
		if isSubPath(childPath, path) {
			_ = w.watcher.Remove(childPath)
			delete(w.paths, childPath)
		}
	}

	return wasDir
}

// excluded reports whether the path's base name matches an exclusion glob.
func (w *Watcher) excluded(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.exclude {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// ignored reports whether the path falls under an ignored prefix.
func (w *Watcher) ignored(path string) bool {
	for _, prefix := range w.ignorePrefixes {
		if path == prefix || isSubPath(path, prefix) {
			return true
		}
	}
	return false
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

// isSubPath checks if path is under parent directory.
func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
