// Package pdf reads DOIs out of PDF attachments referenced by RIS records.
package pdf

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxPages is how many leading pages are searched for a DOI.
const DefaultMaxPages = 3

// doiPattern matches 10.XXXX/... where XXXX is 4 to 9 digits.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// Extractor finds DOIs in attached PDFs.
type Extractor struct {
	baseDir  string
	maxPages int
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMaxPages limits the search to the first n pages.
func WithMaxPages(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.maxPages = n
		}
	}
}

// NewExtractor creates an extractor that resolves relative attachment
// paths against baseDir.
func NewExtractor(baseDir string, opts ...ExtractorOption) *Extractor {
	e := &Extractor{baseDir: baseDir, maxPages: DefaultMaxPages}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractDOI returns the first DOI printed on the leading pages of the PDF
// named by attachment. It returns "" with a nil error when the PDF has none.
func (e *Extractor) ExtractDOI(attachment string) (string, error) {
	path, err := ResolveAttachment(e.baseDir, attachment)
	if err != nil {
		return "", err
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	pages := e.maxPages
	if r.NumPage() < pages {
		pages = r.NumPage()
	}

	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if doi := findDOI(text); doi != "" {
			return doi, nil
		}
	}
	return "", nil
}

// findDOI returns the first plausible DOI in text.
func findDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slash := strings.Index(doi, "/")
	return slash != -1 && slash < len(doi)-1
}
