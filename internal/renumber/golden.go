package renumber

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var goldenLineRegex = regexp.MustCompile(`^\s*\[?(\d{1,4})\]?\s*(.+)`)

// GoldenEntry is one line of the authoritative reference list. Title and
// Journal are normalized.
type GoldenEntry struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Journal string `json:"journal"`
	Year    string `json:"year"`
	Text    string `json:"text"` // the line without its number
}

// ParseGolden reads a golden list. Lines without a leading number, or
// numbered 0, are skipped. When a number repeats, the later line wins.
// Entries are returned in ascending number order.
func ParseGolden(text string) []GoldenEntry {
	byNumber := make(map[int]GoldenEntry)
	for _, line := range strings.Split(text, "\n") {
		m := goldenLineRegex.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil || num == 0 {
			continue
		}
		rest := strings.TrimSpace(m[2])
		if rest == "" {
			continue
		}

		var segs []string
		for _, s := range strings.Split(rest, ".") {
			if s = strings.TrimSpace(s); s != "" {
				segs = append(segs, s)
			}
		}

		var title, journal string
		switch {
		case len(segs) > 1:
			title = segs[1]
		case len(segs) == 1:
			title = segs[0]
		}
		if len(segs) > 2 {
			journal = segs[2]
		}

		byNumber[num] = GoldenEntry{
			Number:  num,
			Title:   Normalize(title),
			Journal: Normalize(journal),
			Year:    ExtractYear(rest),
			Text:    rest,
		}
	}

	entries := make([]GoldenEntry, 0, len(byNumber))
	for _, g := range byNumber {
		entries = append(entries, g)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Number < entries[j].Number })
	return entries
}

// LoadGolden reads and parses a golden list file.
func LoadGolden(path string) ([]GoldenEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading golden list: %w", err)
	}
	return ParseGolden(string(data)), nil
}
