// Package freetext turns free-text reference lines into structured
// citation fields. Extraction is heuristic: every field degrades to empty
// on input it does not understand, and parsing never fails.
package freetext

import (
	"regexp"
	"strings"

	"github.com/matsen/refmend/internal/ris"
)

var (
	segmentSplitRegex = regexp.MustCompile(`\.\s+`)
	authorSplitRegex  = regexp.MustCompile(`[;,]`)

	yearRegex   = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	doiRegex    = regexp.MustCompile(`(10\.\d{4,9}/[-._;()/:A-Za-z0-9]+)`)
	isbnRegex   = regexp.MustCompile(`ISBN[\s:]*((97[89][- ]?)?\d{1,5}[- ]?\d{1,7}[- ]?\d{1,7}[- ]?[\dxX])`)
	volIssRegex = regexp.MustCompile(`;\s*(\d+)\s*\(\s*([\w\-]+)\s*\)\s*:`)
	pagesRegex  = regexp.MustCompile(`:\s*([0-9]+)\s*[-–]\s*([0-9]+)`)
	cityRegex   = regexp.MustCompile(`\b([A-Z][a-z]+(?: [A-Z][a-z]+)*)[:;,]?\s*$`)

	// 15(2 in "Fuel. 15(2): 45-60"
	journalIssueRegex = regexp.MustCompile(`\d\(\d`)
)

// ParsedLine holds the fields extracted from one reference line.
type ParsedLine struct {
	Authors   []string `json:"authors"`
	Title     string   `json:"title"`
	Source    string   `json:"source"` // Journal, book series or edition
	Year      string   `json:"year"`
	Volume    string   `json:"volume"`
	Issue     string   `json:"issue"`
	StartPage string   `json:"start_page"`
	EndPage   string   `json:"end_page"`
	DOI       string   `json:"doi"`
	ISBN      string   `json:"isbn"`
	Publisher string   `json:"publisher"`
	City      string   `json:"city"`
	Type      string   `json:"type"`
	Raw       string   `json:"raw"` // Original line, kept for audit
}

// ParseLine extracts citation fields from a single free-text line.
func ParseLine(line string) ParsedLine {
	orig := strings.TrimSpace(line)
	p := ParsedLine{Raw: orig}

	body := ris.StripNumberPrefix(orig)
	segs := segmentSplitRegex.Split(body, 4)
	for i := range segs {
		segs[i] = strings.TrimSpace(segs[i])
	}
	authorsRaw := segmentAt(segs, 0)
	p.Title = segmentAt(segs, 1)
	p.Source = segmentAt(segs, 2)

	p.Authors = splitAuthors(authorsRaw)

	// Identifiers and numbering are scanned on the whole line, not the
	// segments, since ". " splitting routinely cuts through them.
	if m := doiRegex.FindStringSubmatch(orig); m != nil {
		p.DOI = strings.TrimRight(m[1], ".,;:")
	}
	if m := isbnRegex.FindStringSubmatch(orig); m != nil {
		p.ISBN = m[1]
	}
	if m := volIssRegex.FindStringSubmatch(orig); m != nil {
		p.Volume, p.Issue = m[1], m[2]
	}
	if m := pagesRegex.FindStringSubmatch(orig); m != nil {
		p.StartPage, p.EndPage = m[1], m[2]
	}
	p.Year = yearRegex.FindString(orig)

	if hasPublisherKeyword(orig) {
		p.Publisher, p.City = publisherAndCity(orig)
	}

	p.Type = classify(orig, p)
	return p
}

// ParseText parses every non-empty line of text.
func ParseText(text string) []ParsedLine {
	var out []ParsedLine
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, ParseLine(line))
	}
	return out
}

func segmentAt(segs []string, i int) string {
	if i < len(segs) {
		return segs[i]
	}
	return ""
}

func splitAuthors(raw string) []string {
	var authors []string
	for _, a := range authorSplitRegex.Split(raw, -1) {
		a = strings.TrimSpace(a)
		if a == "" || strings.ToLower(a) == "et al" {
			continue
		}
		authors = append(authors, a)
	}
	return authors
}

func hasPublisherKeyword(s string) bool {
	return strings.Contains(s, "Press") || strings.Contains(s, "Publisher")
}

// publisherAndCity scans the ";"-separated segments of a book citation.
// The first segment naming a press is the publisher; the first segment
// ending in a capitalised place name gives the city.
func publisherAndCity(line string) (publisher, city string) {
	for _, seg := range strings.Split(line, ";") {
		if publisher == "" && hasPublisherKeyword(seg) {
			publisher = strings.TrimSpace(seg)
		}
		if city == "" {
			if m := cityRegex.FindStringSubmatch(seg); m != nil {
				city = m[1]
			}
		}
	}
	return publisher, city
}

// classify guesses the reference type. The checks run in a fixed priority
// order and the first hit wins.
func classify(line string, p ParsedLine) string {
	switch {
	case strings.Contains(line, "Proceedings") || strings.Contains(line, "Conference"):
		return ris.TypeConference
	case strings.Contains(line, "Report") || strings.Contains(line, "Standard") || strings.Contains(line, "ISO"):
		return ris.TypeReport
	case hasPublisherKeyword(line) || p.ISBN != "":
		return ris.TypeBook
	case journalIssueRegex.MatchString(line):
		return ris.TypeJournal
	default:
		return ris.TypeGeneric
	}
}
