package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rcastle/filetrap/pkg/filetrap/config"
	"github.com/rcastle/filetrap/pkg/filetrap/logging"
	"github.com/rcastle/filetrap/pkg/filetrap/output"
	"github.com/rcastle/filetrap/pkg/guard"
	"github.com/rcastle/filetrap/pkg/guard/catalog"
)

// runGuard starts the foreground capture daemon for the given path.
func runGuard(cmd *cobra.Command, args []string) error {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if len(args) == 1 {
		cfg.WatchRoot = args[0]
	}
	if cfg.WatchRoot == "" {
		return fmt.Errorf("no path to watch: pass one as an argument or set watch_root")
	}

	// Work with absolute paths throughout; audit records demand them.
	for _, p := range []*string{&cfg.WatchRoot, &cfg.BackupRoot, &cfg.CatalogPath} {
		expanded, err := config.ExpandPath(*p)
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return err
		}
		*p = abs
	}

	if err := os.MkdirAll(cfg.BackupRoot, 0o755); err != nil {
		return fmt.Errorf("creating backup root: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := initLogging(&cfg); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer func() { _ = logging.Close() }()

	// History is best-effort: a catalog that cannot open (e.g. another
	// instance holds the lock) downgrades to audit-log-only operation.
	var cat *catalog.Catalog
	if c, err := catalog.Open(cfg.CatalogPath); err != nil {
		logging.Get("catalog").Warn("catalog unavailable, continuing without history", "error", err)
	} else {
		cat = c
		defer cat.Close()
	}

	reporter := output.NewReporter(os.Stdout, getQuiet())

	svc, err := guard.New(&cfg, cat, reporter)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return svc.Run(ctx)
}

// initLogging converts the config surface into a logging.Config and
// initializes the global logging state.
func initLogging(cfg *config.Config) error {
	var maxSize int64
	if cfg.Logging.Rotation.MaxSize != "" {
		n, err := humanize.ParseBytes(cfg.Logging.Rotation.MaxSize)
		if err != nil {
			return fmt.Errorf("parsing logging.rotation.max_size: %w", err)
		}
		maxSize = int64(n)
	}

	logCfg := logging.Config{
		Level: cfg.Logging.Level,
		Path:  cfg.Logging.Path,
		Rotation: logging.RotationConfig{
			MaxSize:    maxSize,
			MaxAge:     cfg.Logging.Rotation.MaxAge,
			MaxBackups: cfg.Logging.Rotation.MaxBackups,
			Daily:      cfg.Logging.Rotation.Daily,
		},
		Components: cfg.Logging.Components,
	}

	if getVerbose() {
		logCfg.Level = "debug"
		logCfg.ConsoleLevel = "debug"
	}

	return logging.Init(logCfg)
}
