package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rcastle/filetrap/pkg/filetrap/config"
	"github.com/rcastle/filetrap/pkg/filetrap/output"
	"github.com/rcastle/filetrap/pkg/guard/catalog"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View capture history",
	Long: `View past captures recorded in the catalog.

Each entry shows when a file was captured, its size, content hash, and
source path. Entries marked R were recovered after the original was
deleted mid-capture.`,
	RunE: runHistory,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period.`,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// openCatalog opens the configured capture catalog.
func openCatalog() (*catalog.Catalog, error) {
	path := viper.GetString("catalog_path")
	if path == "" {
		path = config.DefaultCatalogPath()
	}

	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	return cat, nil
}

// runHistory lists recent captures, newest first.
func runHistory(cmd *cobra.Command, args []string) error {
	cat, err := openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	results, err := cat.List(historyLimit)
	if err != nil {
		return fmt.Errorf("listing captures: %w", err)
	}

	fmt.Print(output.HistoryTable(results))
	return nil
}

// runHistoryClean removes entries older than the retention period.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	cat, err := openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	days := viper.GetInt("retention_days")
	if days <= 0 {
		days = config.DefaultRetentionDays
	}

	removed, err := cat.Clean(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return fmt.Errorf("cleaning catalog: %w", err)
	}

	fmt.Printf("Removed %d entries older than %d days\n", removed, days)
	return nil
}
