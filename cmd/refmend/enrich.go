package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/refmend/internal/enrich"
	"github.com/matsen/refmend/internal/freetext"
	"github.com/matsen/refmend/internal/lookup"
	"github.com/matsen/refmend/internal/pdf"
	"github.com/matsen/refmend/internal/ris"
)

var (
	enrichStructured bool
	enrichCache      bool
	enrichCachePath  string
	enrichRetries    int
	enrichDelay      time.Duration
	enrichNoPDF      bool
)

func init() {
	enrichCmd.Flags().BoolVar(&enrichStructured, "structured", false, "Parse plain-text input with the free-text citation parser")
	enrichCmd.Flags().BoolVar(&enrichCache, "cache", false, "Reuse lookup responses from the local cache")
	enrichCmd.Flags().StringVar(&enrichCachePath, "cache-path", "", "Cache database path (default from config)")
	enrichCmd.Flags().IntVar(&enrichRetries, "retries", 0, "Attempts per lookup (default from config)")
	enrichCmd.Flags().DurationVar(&enrichDelay, "delay", 0, "Minimum delay between requests (default from config)")
	enrichCmd.Flags().BoolVar(&enrichNoPDF, "no-pdf", false, "Don't read DOIs from L1 PDF attachments")
	rootCmd.AddCommand(enrichCmd)
}

var enrichCmd = &cobra.Command{
	Use:   "enrich <in> <out.ris>",
	Short: "Complete citation records from Crossref and Open Library",
	Long: `Complete citation records from Crossref and Open Library.

The input is RIS, or plain text with one citation per line. Each record is
looked up by DOI, else by title; journal articles get journal, volume,
issue, pages and year, books and chapters with an ISBN get publisher, city
and page count. A failed lookup leaves the record as it was.

Usage:
  refmend enrich refs.ris refs_full.ris
  refmend enrich refs.txt refs_full.ris --structured
  refmend enrich refs.ris refs_full.ris --cache

Environment Variables:
  REFMEND_MAILTO  Contact address sent to Crossref
  REFMEND_CACHE   Lookup cache database path`,
	Args: exactArgs(2),
	RunE: runEnrich,
}

// EnrichResult is the response for the enrich command.
type EnrichResult struct {
	Input    string        `json:"input"`
	Output   string        `json:"output"`
	Plain    bool          `json:"plain_text_input"`
	Records  int           `json:"records"`
	Enriched int           `json:"enriched"`
	Failed   int           `json:"failed"`
	Bytes    int64         `json:"bytes"`
	Entries  []EnrichEntry `json:"entries"`
}

// EnrichEntry reports one record.
type EnrichEntry struct {
	enrich.Outcome
	Warnings []string `json:"warnings,omitempty"`
}

func runEnrich(cmd *cobra.Command, args []string) error {
	src, dst := args[0], args[1]
	text := string(mustReadInput(src))

	recs, plain := ris.Parse(text)
	if plain && enrichStructured {
		recs = freetext.Records(text)
	}
	if plain && !jsonOutput {
		fmt.Fprintln(os.Stderr, "Input has no RIS tags; treating each line as one citation.")
	}

	svc, closeCache := mustLookupService()
	defer closeCache()

	opts := []enrich.Option{enrich.WithLogger(logger)}
	if !enrichNoPDF {
		opts = append(opts, enrich.WithPDFExtractor(pdf.NewExtractor(filepath.Dir(src))))
	}
	enricher := enrich.New(svc, opts...)

	if !jsonOutput {
		outputHuman("%d records, looking up metadata...\n\n", len(recs))
	}
	outcomes, err := enricher.EnrichAll(cmd.Context(), recs, func(i int, o enrich.Outcome) {
		if !jsonOutput {
			outputHuman("%s\n", progressLine(i+1, len(recs), outcomeMark(o), titleOrPlaceholder(o.Title)))
		}
	})
	if err != nil {
		closeCache()
		exitWithError(ExitError, "enrichment interrupted: %v", err)
	}

	out := ris.SerializeAll(recs)
	if err := os.WriteFile(dst, []byte(out), 0644); err != nil {
		closeCache()
		exitWithError(ExitError, "writing %s: %v", dst, err)
	}

	result := buildEnrichResult(src, dst, plain, outcomes)
	result.Bytes = int64(len(out))

	if jsonOutput {
		return outputJSON(result)
	}
	outputHuman("\nEnriched %d of %d records", result.Enriched, result.Records)
	if result.Failed > 0 {
		outputHuman(" (%s %d with lookup failures)", warnMark, result.Failed)
	}
	outputHuman("\nWrote %s (%s)\n", dst, formatBytes(result.Bytes))
	return nil
}

// mustLookupService builds the lookup client from config and flags,
// wrapped in the response cache when requested. The returned func closes
// the cache.
func mustLookupService() (enrich.Lookup, func()) {
	cfg := mustLoadConfig().Resolved()
	if enrichRetries > 0 {
		cfg.MaxRetries = enrichRetries
	}
	if enrichDelay > 0 {
		cfg.RequestDelay = enrichDelay
	}
	if enrichCachePath != "" {
		cfg.CachePath = enrichCachePath
	}

	client := lookup.NewClient(append(cfg.ClientOptions(), lookup.WithLogger(logger))...)
	if !enrichCache {
		return client, func() {}
	}

	cache, err := lookup.OpenCache(cfg.CachePath)
	if err != nil {
		exitWithError(ExitConfigError, "opening lookup cache: %v", err)
	}
	closed := false
	return lookup.NewCachedService(client, cache, lookup.WithCacheLogger(logger)), func() {
		if !closed {
			closed = true
			cache.Close()
		}
	}
}

func buildEnrichResult(src, dst string, plain bool, outcomes []enrich.Outcome) EnrichResult {
	result := EnrichResult{
		Input:   src,
		Output:  dst,
		Plain:   plain,
		Records: len(outcomes),
		Entries: make([]EnrichEntry, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		if o.WorkFound || o.BookFound {
			result.Enriched++
		}
		if !o.OK() {
			result.Failed++
		}
		result.Entries = append(result.Entries, EnrichEntry{Outcome: o, Warnings: o.Warnings()})
	}
	return result
}

func outcomeMark(o enrich.Outcome) string {
	switch {
	case !o.OK():
		return warnMark
	case o.WorkFound || o.BookFound:
		return okMark
	default:
		return "-"
	}
}

func titleOrPlaceholder(title string) string {
	if title == "" {
		return "(untitled)"
	}
	return title
}
