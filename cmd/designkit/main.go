// Package main is the entry point for the designkit MCP server.
//
// designkit serves a read-only design-system dataset (tokens, components,
// guidelines) to MCP clients over stdio. The startup sequence is:
//
// 1. Initialize logging (stderr only; stdout belongs to the protocol)
// 2. Load configuration, with --config and --data-dir overrides
// 3. Load and validate the dataset, start the file watcher
// 4. Serve MCP tools until the client disconnects or a signal arrives
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"designkit/internal/config"
	"designkit/internal/logging"
)

var (
	// configFile is set by the --config flag.
	configFile string

	// dataDir is set by the --data-dir flag and overrides the config file.
	dataDir string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "designkit",
	Short: "designkit is an MCP server for a design system dataset",
	Long: `designkit exposes design tokens, UI component specs and usage guidelines
to AI assistants through the Model Context Protocol. The dataset lives in
plain JSON files and is hot-reloaded when the files change.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: $XDG_CONFIG_HOME/designkit/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "dataset directory (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the effective configuration from flags and the config
// file.
func loadConfig(logger *logging.AppLogger) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFrom(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	logger.Debug("Configuration resolved", "data_dir", cfg.DataDir, "watch_files", cfg.WatchFiles)
	return cfg, nil
}
