// Package config provides configuration management for filetrap.
package config

// Default configuration values for filetrap.
const (
	// DefaultDebounceMS is the quiet period, in milliseconds, a path must
	// stay silent before it is considered stable enough to capture.
	DefaultDebounceMS = 500

	// DefaultMaxRetries is the maximum number of capture attempts per path
	// before giving up on transient I/O failures.
	DefaultMaxRetries = 5

	// DefaultMaxFileSize is the largest file filetrap will capture.
	DefaultMaxFileSize = "512MB"

	// DefaultRetentionDays is the default number of days to retain catalog
	// entries before `history clean` removes them.
	DefaultRetentionDays = 90
)

// DefaultExclusions contains file patterns that are skipped by default.
// Matching is against the base name of the path.
var DefaultExclusions = []string{
	"*.tmp",
	"*.swp",
	"*.partial",
	"*.crdownload",
	".DS_Store",
}
