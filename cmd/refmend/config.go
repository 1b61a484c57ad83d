package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/refmend/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set configuration values.

Usage:
  refmend config                            # Show all config
  refmend config mailto                     # Get specific value
  refmend config mailto me@example.org      # Set value
  refmend config request-delay 2s           # Slow down lookups

Keys:
  mailto           Contact address sent to Crossref
  crossref_url     Crossref API base URL
  openlibrary_url  Open Library base URL
  max_retries      Attempts per lookup
  retry_delay      Pause between attempts (e.g. 1s)
  request_delay    Minimum spacing between requests (e.g. 1s)
  timeout          Per-request timeout (e.g. 20s)
  cache_path       Lookup cache database

Empty values fall back to built-in defaults.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	// No args: show all config
	if len(args) == 0 {
		values := make(map[string]string, len(config.Keys()))
		for _, key := range config.Keys() {
			values[key], _ = cfg.Get(key)
		}
		if jsonOutput {
			return outputJSON(values)
		}
		outputHuman("# %s\n", config.Path())
		for _, key := range config.Keys() {
			outputHuman("%-16s %s\n", key+":", values[key])
		}
		return nil
	}

	key := config.NormalizeKey(args[0])

	// One arg: get specific value
	if len(args) == 1 {
		value, err := cfg.Get(key)
		if err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		if jsonOutput {
			return outputJSON(map[string]string{key: value})
		}
		fmt.Println(value)
		return nil
	}

	// Two args: set value
	if err := cfg.Set(key, args[1]); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Save(config.Path()); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	value, _ := cfg.Get(key)
	if jsonOutput {
		return outputJSON(UpdateResponse{
			Status: "updated",
			Key:    key,
			Value:  value,
		})
	}
	outputHuman("Updated %s to %s\n", key, value)
	return nil
}
