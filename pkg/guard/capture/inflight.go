package capture

import "sync"

// InFlight is the set of paths currently being captured. Claiming a path is
// the sole mutual-exclusion mechanism: a path is never captured by two
// concurrent operations.
type InFlight struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewInFlight creates an empty in-flight set.
func NewInFlight() *InFlight {
	return &InFlight{active: make(map[string]struct{})}
}

// TryClaim atomically inserts the path. It returns false if the path is
// already claimed, in which case the caller must not start a capture.
func (f *InFlight) TryClaim(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.active[path]; ok {
		return false
	}
	f.active[path] = struct{}{}
	return true
}

// Release removes the path from the set. Callers release on every exit path
// of a capture: success, skip, or failure.
func (f *InFlight) Release(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, path)
}

// Active returns the number of claimed paths.
func (f *InFlight) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.active)
}
