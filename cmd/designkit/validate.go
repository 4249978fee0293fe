package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"designkit/internal/data"
	"designkit/internal/logging"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the dataset once and report validation problems",
	Long: `Validate performs a single load of tokens.json, components.json and
guidelines.json and prints every warning the load produced: missing files,
parse failures and dropped elements. Exits non-zero when no dataset yields
a single valid entry.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	logger := logging.NewAppLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	// One-shot load: no watcher, no cache concerns.
	dcfg := cfg.DataConfig()
	dcfg.WatchFiles = false

	manager, err := data.NewManager(dcfg)
	if err != nil {
		return err
	}
	defer manager.Close()

	res, loadErr := manager.Load(cmd.Context())
	if res != nil {
		for _, w := range res.Warnings {
			fmt.Fprintln(cmd.OutOrStdout(), "warning:", w)
		}
	}
	if loadErr != nil {
		return fmt.Errorf("dataset invalid: %w", loadErr)
	}

	for dataset, count := range res.Snapshot.Counts() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d valid entries\n", dataset, count)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "dataset OK")
	return nil
}
