// Package main provides the refmend CLI entry point.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matsen/refmend/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// jsonOutput switches every command to JSON output
	jsonOutput bool
	verbose    bool
)

// logger receives warnings and progress diagnostics on stderr.
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		stop()
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "refmend",
	Short: "Normalize, enrich and renumber citation records",
	Long: `refmend normalizes bibliographic citation records.

Pipelines:
  convert   Free-text reference lines to RIS
  enrich    Complete RIS (or plain reference lines) from Crossref and Open Library
  renumber  Renumber an EndNote XML export against a golden reference list

Output is human-readable by default; use --json for machine-readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	},
}

func init() {
	// Load .env file if present (for REFMEND_MAILTO, REFMEND_CACHE)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log lookup retries and other diagnostics")
	rootCmd.Version = Version
}

// exactArgs is cobra.ExactArgs with the usage line in the error, since
// usage printing is silenced.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("accepts %d arg(s), received %d\n\nUsage:\n  %s", n, len(args), cmd.UseLine())
		}
		return nil
	}
}

// mustReadInput reads an input file, exits if it is missing or unreadable.
func mustReadInput(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			exitWithError(ExitDataError, "input file does not exist: %s", path)
		}
		exitWithError(ExitDataError, "reading %s: %v", path, err)
	}
	return data
}

// mustExist exits if path does not name an existing file.
func mustExist(path string) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			exitWithError(ExitDataError, "input file does not exist: %s", path)
		}
		exitWithError(ExitDataError, "checking %s: %v", path, err)
	}
}

// mustLoadConfig loads the global configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}
