// Package enrich completes citation records with metadata from external
// lookup services.
package enrich

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/matsen/refmend/internal/lookup"
	"github.com/matsen/refmend/internal/ris"
)

// Lookup is the pair of metadata queries the enricher depends on.
// *lookup.Client and *lookup.CachedService satisfy it.
type Lookup interface {
	LookupByTitleOrDOI(ctx context.Context, doi, title string) (*lookup.Work, error)
	LookupByISBN(ctx context.Context, isbn string) (*lookup.Book, error)
}

// PDFExtractor finds a DOI inside an attached PDF.
type PDFExtractor interface {
	ExtractDOI(attachment string) (string, error)
}

// Outcome describes what happened to one record.
type Outcome struct {
	Title     string  `json:"title"`
	QueryBy   string  `json:"query_by,omitempty"` // "doi", "title" or "" when nothing could be looked up
	WorkFound bool    `json:"work_found"`
	BookFound bool    `json:"book_found"`
	PDFDOI    string  `json:"pdf_doi,omitempty"`
	Errors    []error `json:"-"`
}

// OK reports whether every lookup attempted for the record succeeded.
func (o Outcome) OK() bool {
	return len(o.Errors) == 0
}

// Warnings returns the outcome's errors as strings.
func (o Outcome) Warnings() []string {
	out := make([]string, 0, len(o.Errors))
	for _, err := range o.Errors {
		out = append(out, err.Error())
	}
	return out
}

// Enricher merges lookup results into records.
type Enricher struct {
	lookup Lookup
	pdf    PDFExtractor
	logger *slog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithLogger sets the logger used for lookup warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Enricher) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPDFExtractor enables DOI extraction from L1 attachments for records
// that carry no DOI.
func WithPDFExtractor(p PDFExtractor) Option {
	return func(e *Enricher) {
		e.pdf = p
	}
}

// New creates an Enricher backed by l.
func New(l Lookup, opts ...Option) *Enricher {
	e := &Enricher{lookup: l, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich looks up rec and merges the response into it in place. Lookup
// failures never abort: they are logged, collected in the outcome, and the
// record keeps the fields it already had.
func (e *Enricher) Enrich(ctx context.Context, rec *ris.Record) Outcome {
	out := Outcome{Title: rec.Title()}
	refType := strings.ToUpper(rec.Type())
	if refType == "" {
		refType = ris.TypeGeneric
	}

	if !rec.Has(ris.TagDOI) {
		e.doiFromAttachment(rec, &out)
	}

	doi := rec.Get(ris.TagDOI)
	switch {
	case doi != "":
		out.QueryBy = "doi"
	case out.Title != "":
		out.QueryBy = "title"
	}

	if out.QueryBy != "" {
		work, err := e.lookup.LookupByTitleOrDOI(ctx, doi, out.Title)
		if err != nil {
			e.fail(&out, "crossref lookup failed", err)
		} else {
			out.WorkFound = true
			mergeWork(rec, work, refType)
		}
	}

	if refType == ris.TypeBook || refType == ris.TypeChapter {
		if isbn := rec.Get(ris.TagISBN); isbn != "" {
			book, err := e.lookup.LookupByISBN(ctx, isbn)
			if err != nil {
				e.fail(&out, "open library lookup failed", err)
			} else {
				out.BookFound = true
				mergeBook(rec, book)
			}
		}
	}

	return out
}

// EnrichAll enriches recs in order. progress, when non-nil, is called after
// each record. It stops early only when ctx is cancelled.
func (e *Enricher) EnrichAll(ctx context.Context, recs []*ris.Record, progress func(i int, o Outcome)) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(recs))
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		o := e.Enrich(ctx, rec)
		outcomes = append(outcomes, o)
		if progress != nil {
			progress(i, o)
		}
	}
	return outcomes, nil
}

func (e *Enricher) doiFromAttachment(rec *ris.Record, out *Outcome) {
	if e.pdf == nil {
		return
	}
	for _, att := range rec.Values(ris.TagFileAttach) {
		doi, err := e.pdf.ExtractDOI(att)
		if err != nil {
			e.fail(out, "reading attachment failed", err)
			continue
		}
		if doi != "" {
			rec.Set(ris.TagDOI, doi)
			out.PDFDOI = doi
			return
		}
	}
}

func (e *Enricher) fail(out *Outcome, msg string, err error) {
	out.Errors = append(out.Errors, err)
	e.logger.Warn(msg, "title", truncate(out.Title, 60), "error", err)
}

// mergeWork applies a Crossref work. A value the response omits never
// clears the existing one.
func mergeWork(rec *ris.Record, w *lookup.Work, refType string) {
	if len(w.Contributors) > 0 {
		rec.Delete(ris.TagAuthor)
		for _, c := range w.Contributors {
			rec.Add(ris.TagAuthor, formatAuthor(c))
		}
	}
	rec.Set(ris.TagDOI, w.DOI)

	if refType == ris.TypeJournal || refType == ris.TypeGeneric {
		rec.Set(ris.TagJournal, w.ContainerTitle)
		rec.Set(ris.TagVolume, w.Volume)
		rec.Set(ris.TagIssue, w.Issue)
		if w.Page != "" {
			start, end, _ := strings.Cut(w.Page, "-")
			rec.Set(ris.TagStartPage, strings.TrimSpace(start))
			rec.Set(ris.TagEndPage, strings.TrimSpace(end))
		}
	}

	if w.Year > 0 {
		rec.Set(ris.TagYear, strconv.Itoa(w.Year))
	}
	rec.Set(ris.TagSecondary, w.ContainerTitle)
}

func mergeBook(rec *ris.Record, b *lookup.Book) {
	rec.Set(ris.TagPublisher, b.Publisher)
	rec.Set(ris.TagCity, b.Place)
	if b.Pages != "" {
		rec.Set(ris.TagStartPage, "1")
		rec.Set(ris.TagEndPage, b.Pages)
	}
}

// formatAuthor renders "family, given", dropping whichever half is empty.
func formatAuthor(c lookup.Contributor) string {
	switch {
	case c.Family == "":
		return c.Given
	case c.Given == "":
		return c.Family
	}
	return c.Family + ", " + c.Given
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
