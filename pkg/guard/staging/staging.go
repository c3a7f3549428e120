// Package staging manages provisional capture artifacts: hard links or
// in-progress copies held under the staging directory as insurance against
// deletion of the original file.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rcastle/filetrap/pkg/filetrap/logging"
)

// Entry is one provisional artifact. The file at StagingPath is either a
// hard link to the original content or a copy in progress.
type Entry struct {
	SourcePath  string
	StagingPath string
	CreatedAt   time.Time
}

// Store allocates staging paths under a dedicated directory.
type Store struct {
	dir string
}

// NewStore creates the staging directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("staging directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the staging directory.
func (s *Store) Dir() string {
	return s.dir
}

// NewPath returns a fresh staging path for the given source. A random token
// prefix keeps concurrent captures of same-named files from colliding.
func (s *Store) NewPath(sourcePath string) string {
	token := uuid.New().String()[:8]
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s", token, filepath.Base(sourcePath)))
}

// Remove deletes a staging artifact. Best-effort; failures are logged only.
func (s *Store) Remove(stagingPath string) {
	if err := os.Remove(stagingPath); err != nil && !os.IsNotExist(err) {
		logging.Get("staging").Warn("failed to remove staging artifact",
			"path", stagingPath, "error", err)
	}
}

// Registry tracks the active staging entry per source path. Creation,
// existence checks, and consumption all happen under one lock, so a Deleted
// event racing a capture observes the entry deterministically.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Put records the staging entry for a source path. At most one entry per
// source exists at a time; the in-flight claim upstream guarantees no
// concurrent Put for the same source.
func (r *Registry) Put(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.SourcePath] = e
}

// Take removes and returns the entry for a source path. Exactly one caller
// wins: either normal finalization or deletion-triggered recovery.
func (r *Registry) Take(sourcePath string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sourcePath]
	if ok {
		delete(r.entries, sourcePath)
	}
	return e, ok
}

// Len returns the number of active entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
