// Package types defines the shared data types used across filetrap packages.
package types

import "time"

// EventKind classifies a filesystem change notification.
type EventKind int

// Event kinds in the order they typically occur in a file's lifecycle.
const (
	KindCreated EventKind = iota
	KindModified
	KindRenamed
	KindDeleted
)

// String returns the lowercase name of the event kind.
func (k EventKind) String() string {
	switch k {
	case KindCreated:
		return "created"
	case KindModified:
		return "modified"
	case KindRenamed:
		return "renamed"
	case KindDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ChangeEvent is a single raw filesystem notification. Transient; never
// persisted.
type ChangeEvent struct {
	Path       string
	Kind       EventKind
	ObservedAt time.Time
}

// CaptureResult records one finalized capture. Immutable once created; it is
// what the audit log and the catalog persist.
type CaptureResult struct {
	SourcePath string    `json:"source_path"`
	DestPath   string    `json:"dest_path"`
	SizeBytes  int64     `json:"size_bytes"`
	SHA256     string    `json:"sha256"`
	Timestamp  time.Time `json:"timestamp"`
	Recovered  bool      `json:"recovered"`
}
