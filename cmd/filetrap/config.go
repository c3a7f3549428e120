package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcastle/filetrap/pkg/filetrap/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage filetrap configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/filetrap/config.yaml (if set)
  2. ~/.config/filetrap/config.yaml

Environment variables can override config file settings using the FILETRAP_ prefix:
  FILETRAP_BACKUP_ROOT=/mnt/vault
  FILETRAP_DEBOUNCE_MS=250
  FILETRAP_MAX_FILE_SIZE=1GB`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	fmt.Println("Current configuration:")
	fmt.Printf("  watch_root:     %s\n", orUnset(cfg.WatchRoot))
	fmt.Printf("  backup_root:    %s\n", cfg.BackupRoot)
	fmt.Printf("  debounce_ms:    %d\n", cfg.DebounceMS)
	fmt.Printf("  max_retries:    %d\n", cfg.MaxRetries)
	fmt.Printf("  max_file_size:  %s\n", cfg.MaxFileSize)
	fmt.Printf("  exclude:        %s\n", strings.Join(cfg.Exclude, ", "))
	fmt.Printf("  catalog_path:   %s\n", cfg.CatalogPath)
	fmt.Printf("  retention_days: %d\n", cfg.RetentionDays)
	fmt.Printf("  logging.level:  %s\n", cfg.Logging.Level)
	return nil
}

// runConfigInit writes the default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Printf("Configuration file: %s\n", filepath.Join(dir, "config.yaml"))
	return nil
}

// runConfigPath prints the config file location.
func runConfigPath(cmd *cobra.Command, args []string) error {
	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Println(filepath.Join(dir, "config.yaml"))
	return nil
}

// orUnset renders empty settings readably.
func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
