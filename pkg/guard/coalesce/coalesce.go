// Package coalesce debounces bursts of filesystem events. Each path records
// only its most recent event time; once a path stays quiet for the debounce
// window it is promoted to exactly one capture request.
package coalesce

import (
	"sync"
	"time"
)

// Coalescer maps pending paths to the time they were last seen.
// Last-write-wins: a new event for a path simply restarts its quiet window.
type Coalescer struct {
	mu      sync.Mutex
	pending map[string]time.Time
}

// New creates an empty coalescer.
func New() *Coalescer {
	return &Coalescer{pending: make(map[string]time.Time)}
}

// Observe upserts the last-seen time for a path.
func (c *Coalescer) Observe(path string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[path] = at
}

// Forget drops a pending path, reporting whether it was present. Called when
// a Deleted event arrives: a deleted file can no longer stabilize.
func (c *Coalescer) Forget(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[path]; !ok {
		return false
	}
	delete(c.pending, path)
	return true
}

// TakeStale removes and returns every path whose quiet period exceeds the
// window. The periodic sweep calls this and forwards the result to dispatch.
func (c *Coalescer) TakeStale(now time.Time, window time.Duration) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stale []string
	for path, lastSeen := range c.pending {
		if now.Sub(lastSeen) > window {
			stale = append(stale, path)
			delete(c.pending, path)
		}
	}
	return stale
}

// Len returns the number of pending paths.
func (c *Coalescer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
