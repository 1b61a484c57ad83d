package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/matsen/refmend/internal/endnote"
	"github.com/matsen/refmend/internal/renumber"
)

func init() {
	rootCmd.AddCommand(renumberCmd)
}

var renumberCmd = &cobra.Command{
	Use:   "renumber <export.xml> <golden.txt> <out.xml>",
	Short: "Renumber an EndNote XML export against a golden reference list",
	Long: `Renumber an EndNote XML export against a golden reference list.

Each golden line "[n] Authors. Title. Journal. Year..." is matched to an
exported record by title similarity, then by journal and year, then by
year alone. Matched records get rec-number n; records are then sorted by
number with unmatched records last. Golden numbers left without a record
are reported, not fixed. Unmatched records keep the rec-number they had in
the export, which can repeat a number just assigned to another record.

Usage:
  refmend renumber CQP.xml golden_list.txt CQP_renum.xml`,
	Args: exactArgs(3),
	RunE: runRenumber,
}

// RenumberResult is the response for the renumber command.
type RenumberResult struct {
	Output    string                 `json:"output"`
	Bytes     int64                  `json:"bytes"`
	Records   int                    `json:"records"`
	Golden    int                    `json:"golden"`
	Assigned  int                    `json:"assigned"`
	Tiers     map[string]int         `json:"tiers"`
	Missing   []int                  `json:"missing"`
	Unmatched []UnmatchedRecord      `json:"unmatched"`
	Coverage  []renumber.CoverageRow `json:"coverage"`
}

// UnmatchedRecord is an exported record no golden entry was given to.
type UnmatchedRecord struct {
	Number string `json:"rec_number"` // number kept from the export
	Title  string `json:"title"`
}

func runRenumber(cmd *cobra.Command, args []string) error {
	src, goldenPath, dst := args[0], args[1], args[2]
	mustExist(src)
	mustExist(goldenPath)

	export, err := endnote.LoadFile(src)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	golden, err := renumber.LoadGolden(goldenPath)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	res := renumber.Match(golden, export.Records())

	unmatched := make([]UnmatchedRecord, 0, len(res.Unmatched))
	for _, i := range res.Unmatched {
		unmatched = append(unmatched, UnmatchedRecord{Number: export.Number(i), Title: res.Records[i].Title})
	}

	if err := export.Renumber(res.Records); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	n, err := export.WriteFile(dst)
	if err != nil {
		exitWithError(ExitError, "writing %s: %v", dst, err)
	}

	result := buildRenumberResult(res, unmatched)
	result.Output = dst
	result.Bytes = n

	if jsonOutput {
		return outputJSON(result)
	}

	outputHuman("Wrote %s (%d records, %s)\n\n", dst, result.Records, formatBytes(n))
	renderCoverage(os.Stdout, result.Coverage)

	outputHuman("\nAssigned %d of %d golden numbers (%s)\n", result.Assigned, result.Golden, formatTiers(result.Tiers))
	if !res.Complete() {
		outputHuman("%s Unmatched golden numbers: %s\n", warnMark, formatNumbers(result.Missing))
	} else {
		outputHuman("%s All golden numbers are in place\n", okMark)
	}
	if len(unmatched) > 0 {
		outputHuman("%s %d exported records matched no golden entry:\n", warnMark, len(unmatched))
		for _, u := range unmatched {
			outputHuman("  [%s] %s\n", orNA(u.Number), truncateString(u.Title, ProgressTitleMaxLen))
		}
	}
	return nil
}

func buildRenumberResult(res renumber.Result, unmatched []UnmatchedRecord) RenumberResult {
	result := RenumberResult{
		Records:   len(res.Records),
		Golden:    len(res.Golden),
		Tiers:     make(map[string]int),
		Missing:   res.Missing,
		Unmatched: unmatched,
		Coverage:  res.Coverage(),
	}
	if result.Missing == nil {
		result.Missing = []int{}
	}
	for tier, count := range res.ByTier() {
		if tier == renumber.TierNone {
			continue
		}
		result.Tiers[tier.String()] = count
		result.Assigned += count
	}
	return result
}

// renderCoverage prints one row per golden number.
func renderCoverage(w io.Writer, rows []renumber.CoverageRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Golden", "XML", "Tier", "Score", "Title"})
	table.SetAutoWrapText(false)

	for _, r := range rows {
		num := strconv.Itoa(r.Number)
		if !r.Found {
			table.Append([]string{num, "NA", "", "", missMark + " (missing)"})
			continue
		}
		score := ""
		if r.Tier == renumber.TierTitle {
			score = fmt.Sprintf("%.2f", r.Score)
		}
		table.Append([]string{num, num, r.Tier.String(), score, truncateString(r.Title, TableTitleMaxLen)})
	}
	table.Render()
}

func formatTiers(tiers map[string]int) string {
	order := []renumber.Tier{renumber.TierTitle, renumber.TierJournalYear, renumber.TierYear}
	parts := make([]string, 0, len(order))
	for _, t := range order {
		parts = append(parts, fmt.Sprintf("%s %d", t, tiers[t.String()]))
	}
	return strings.Join(parts, ", ")
}

func formatNumbers(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

func orNA(s string) string {
	if s == "" {
		return "NA"
	}
	return s
}
