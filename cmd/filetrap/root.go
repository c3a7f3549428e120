package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rcastle/filetrap/pkg/filetrap/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "filetrap [path]",
		Short: "Preserve files before they can be deleted",
		Long: `Filetrap watches a directory tree and races external deletion: the moment
a file stops changing it is frozen into a hashed, timestamped copy under the
backup root. Files deleted mid-capture are salvaged from staging as
_RECOVERED artifacts.

Examples:
  filetrap ~/incoming              # Guard a directory
  filetrap -b /mnt/vault ~/inbox   # Custom backup root
  filetrap --debounce 250 .        # Shorter quiet window
  filetrap history                 # Browse past captures
  filetrap config show             # Show configuration`,
		Args: cobra.MaximumNArgs(1),
		RunE: runGuard,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/filetrap/config.yaml)")
	rootCmd.PersistentFlags().StringP("backup", "b", "", "backup root directory")
	rootCmd.PersistentFlags().Int("debounce", 0, "debounce window in milliseconds")
	rootCmd.PersistentFlags().Int("max-retries", 0, "maximum capture attempts per file")
	rootCmd.PersistentFlags().StringP("max-size", "s", "", "maximum captured file size (e.g., 100M, 1G)")
	rootCmd.PersistentFlags().StringSliceP("exclude", "e", nil, "exclude patterns (can be specified multiple times)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output to stderr")

	// Bind flags to viper
	_ = viper.BindPFlag("backup_root", rootCmd.PersistentFlags().Lookup("backup"))
	_ = viper.BindPFlag("debounce_ms", rootCmd.PersistentFlags().Lookup("debounce"))
	_ = viper.BindPFlag("max_retries", rootCmd.PersistentFlags().Lookup("max-retries"))
	_ = viper.BindPFlag("max_file_size", rootCmd.PersistentFlags().Lookup("max-size"))
	_ = viper.BindPFlag("exclude", rootCmd.PersistentFlags().Lookup("exclude"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		// Add config paths in order of precedence
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "filetrap"))
		}

		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "filetrap"))
		}
	}

	// Set environment variable prefix and enable auto env binding
	viper.SetEnvPrefix("FILETRAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}
