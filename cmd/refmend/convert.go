package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/refmend/internal/freetext"
	"github.com/matsen/refmend/internal/ris"
)

func init() {
	rootCmd.AddCommand(convertCmd)
}

var convertCmd = &cobra.Command{
	Use:   "convert <refs.txt> <out.ris>",
	Short: "Convert free-text reference lines to RIS",
	Long: `Convert free-text reference lines to RIS.

Each non-empty line is one citation, optionally numbered "[n]". Authors,
title, source, year, volume, issue, pages, DOI, ISBN, publisher and city
are extracted heuristically and the type is guessed from keywords.

Usage:
  refmend convert refs.txt refs.ris`,
	Args: exactArgs(2),
	RunE: runConvert,
}

// ConvertResult is the response for the convert command.
type ConvertResult struct {
	Input   string         `json:"input"`
	Output  string         `json:"output"`
	Records int            `json:"records"`
	Bytes   int64          `json:"bytes"`
	Types   map[string]int `json:"types"`
	Entries []ConvertEntry `json:"entries"`
}

// ConvertEntry summarizes one converted line.
type ConvertEntry struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Year  string `json:"year,omitempty"`
	DOI   string `json:"doi,omitempty"`
	ISBN  string `json:"isbn,omitempty"`
}

func runConvert(cmd *cobra.Command, args []string) error {
	src, dst := args[0], args[1]
	data := mustReadInput(src)

	lines := freetext.ParseText(string(data))
	recs := make([]*ris.Record, len(lines))
	for i, p := range lines {
		recs[i] = p.Record()
	}

	out := ris.SerializeAll(recs)
	if err := os.WriteFile(dst, []byte(out), 0644); err != nil {
		exitWithError(ExitError, "writing %s: %v", dst, err)
	}

	result := buildConvertResult(src, dst, lines)
	result.Bytes = int64(len(out))

	if jsonOutput {
		return outputJSON(result)
	}

	for i, e := range result.Entries {
		outputHuman("%s\n", progressLine(i+1, len(result.Entries), okMark, e.Type+"  "+e.Title))
	}
	outputHuman("\nConverted %d lines (%s) to %s (%s)\n",
		result.Records, formatTypeCounts(result.Types), dst, formatBytes(result.Bytes))
	return nil
}

func buildConvertResult(src, dst string, lines []freetext.ParsedLine) ConvertResult {
	result := ConvertResult{
		Input:   src,
		Output:  dst,
		Records: len(lines),
		Types:   make(map[string]int),
		Entries: make([]ConvertEntry, 0, len(lines)),
	}
	for _, p := range lines {
		result.Types[p.Type]++
		title := p.Title
		if title == "" {
			title = p.Raw
		}
		result.Entries = append(result.Entries, ConvertEntry{
			Type:  p.Type,
			Title: title,
			Year:  p.Year,
			DOI:   p.DOI,
			ISBN:  p.ISBN,
		})
	}
	return result
}

// formatTypeCounts renders counts as "BOOK 1, JOUR 3" in tag order.
func formatTypeCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprintf("%s %d", t, counts[t])
	}
	return strings.Join(parts, ", ")
}
