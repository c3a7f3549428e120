package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// Config represents the application configuration. All values are fixed at
// startup; nothing here is runtime-mutable.
type Config struct {
	// WatchRoot is the directory tree to monitor. Usually supplied as the
	// positional CLI argument rather than through the config file.
	WatchRoot string `mapstructure:"watch_root"`

	// BackupRoot is where captured artifacts, the staging area, and the
	// audit logs live.
	BackupRoot string `mapstructure:"backup_root"`

	// DebounceMS is the quiet window in milliseconds before a path is
	// considered stable.
	DebounceMS int `mapstructure:"debounce_ms"`

	// MaxRetries caps capture attempts per path on transient failures.
	MaxRetries int `mapstructure:"max_retries"`

	// MaxFileSize is a human-readable size limit (e.g. "512MB"). Files
	// larger than this are skipped.
	MaxFileSize string `mapstructure:"max_file_size"`

	// Exclude lists glob patterns matched against base names; matching
	// paths never enter the capture pipeline.
	Exclude []string `mapstructure:"exclude"`

	// CatalogPath is the Badger directory holding capture history.
	CatalogPath string `mapstructure:"catalog_path"`

	// RetentionDays controls how long catalog entries are kept.
	RetentionDays int `mapstructure:"retention_days"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/filetrap/config.yaml
//   - $HOME/.config/filetrap/config.yaml
//
// Environment variables are prefixed with FILETRAP_ (e.g. FILETRAP_BACKUP_ROOT).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "filetrap"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "filetrap"))

	v.SetEnvPrefix("FILETRAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand ~ in path-valued settings
	for _, p := range []*string{&cfg.WatchRoot, &cfg.BackupRoot, &cfg.CatalogPath} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	return &cfg, nil
}

// SetDefaults registers all default values on the given viper instance.
// Shared between Load and the CLI's cobra.OnInitialize hook.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backup_root", DefaultBackupRoot())
	v.SetDefault("debounce_ms", DefaultDebounceMS)
	v.SetDefault("max_retries", DefaultMaxRetries)
	v.SetDefault("max_file_size", DefaultMaxFileSize)
	v.SetDefault("exclude", DefaultExclusions)
	v.SetDefault("catalog_path", DefaultCatalogPath())
	v.SetDefault("retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use logging.DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"guard":    "info",
		"watcher":  "warn",
		"coalesce": "warn",
		"capture":  "info",
		"staging":  "info",
		"catalog":  "warn",
	})
}

// Validate checks the startup configuration surface. An invalid monitored or
// backup path is fatal; everything else has safe defaults enforced here.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.WatchRoot, validation.Required, validation.By(dirExists)),
		validation.Field(&c.BackupRoot, validation.Required),
		validation.Field(&c.DebounceMS, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxRetries, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxFileSize, validation.Required, validation.By(parseableSize)),
		validation.Field(&c.CatalogPath, validation.Required),
	); err != nil {
		return err
	}

	// The backup root must not sit above the watch root with the watch root
	// excluded, and capturing the backup tree itself would loop forever.
	if isSubPath(c.WatchRoot, c.BackupRoot) {
		return fmt.Errorf("watch root %s is inside backup root %s", c.WatchRoot, c.BackupRoot)
	}

	return nil
}

// MaxFileSizeBytes parses the configured size limit. Call Validate first;
// this panics on unparseable input only via the returned error.
func (c *Config) MaxFileSizeBytes() (int64, error) {
	n, err := humanize.ParseBytes(c.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("parsing max_file_size %q: %w", c.MaxFileSize, err)
	}
	return int64(n), nil
}

// dirExists is an ozzo validation rule requiring an existing directory.
func dirExists(value interface{}) error {
	path, _ := value.(string)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", path)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}
	return nil
}

// parseableSize is an ozzo validation rule for human-readable byte sizes.
func parseableSize(value interface{}) error {
	s, _ := value.(string)
	if _, err := humanize.ParseBytes(s); err != nil {
		return fmt.Errorf("invalid size %q", s)
	}
	return nil
}

// isSubPath reports whether path is equal to or nested under parent.
func isSubPath(path, parent string) bool {
	if path == parent {
		return true
	}
	return strings.HasPrefix(path, parent+string(filepath.Separator))
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "filetrap"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "filetrap"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		// Config file exists, do nothing
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# filetrap configuration

# Directory to protect. Usually given on the command line instead:
#   filetrap /path/to/watch
watch_root: ""

# Where captured copies, staging files, and audit logs are written.
backup_root: %s

# Quiet period (milliseconds) after the last event before a file is captured.
debounce_ms: %d

# Maximum capture attempts per file on transient I/O failures.
max_retries: %d

# Files larger than this are skipped.
max_file_size: %s

# Base-name glob patterns that never enter the capture pipeline.
exclude:
  - "*.tmp"
  - "*.swp"
  - "*.partial"
  - "*.crdownload"
  - ".DS_Store"

# Capture history database.
catalog_path: %s
retention_days: %d

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/filetrap/filetrap.log)
  path: ""
  # Log rotation settings
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    guard: info
    watcher: warn
    coalesce: warn
    capture: info
    staging: info
    catalog: warn
`, DefaultBackupRoot(), DefaultDebounceMS, DefaultMaxRetries, DefaultMaxFileSize,
		DefaultCatalogPath(), DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/filetrap/ for the catalog and backups.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "filetrap")
}

// StateDir returns $XDG_STATE_HOME/filetrap/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "filetrap")
}

// DefaultBackupRoot returns the default backup destination.
func DefaultBackupRoot() string {
	return filepath.Join(DataDir(), "backup")
}

// DefaultCatalogPath returns the default capture catalog path.
func DefaultCatalogPath() string {
	return filepath.Join(DataDir(), "catalog")
}
