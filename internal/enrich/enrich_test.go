package enrich

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/matsen/refmend/internal/lookup"
	"github.com/matsen/refmend/internal/ris"
)

type fakeLookup struct {
	work    *lookup.Work
	workErr error
	book    *lookup.Book
	bookErr error

	gotDOI, gotTitle, gotISBN string
	workCalls, bookCalls      int
}

func (f *fakeLookup) LookupByTitleOrDOI(ctx context.Context, doi, title string) (*lookup.Work, error) {
	f.workCalls++
	f.gotDOI, f.gotTitle = doi, title
	if f.workErr != nil {
		return nil, f.workErr
	}
	if f.work == nil {
		return nil, lookup.ErrNotFound
	}
	return f.work, nil
}

func (f *fakeLookup) LookupByISBN(ctx context.Context, isbn string) (*lookup.Book, error) {
	f.bookCalls++
	f.gotISBN = isbn
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	if f.book == nil {
		return nil, lookup.ErrNotFound
	}
	return f.book, nil
}

type fakePDF struct {
	doi string
	err error
}

func (f fakePDF) ExtractDOI(string) (string, error) { return f.doi, f.err }

func quietEnricher(l Lookup, opts ...Option) *Enricher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(l, append([]Option{WithLogger(logger)}, opts...)...)
}

func journalRecord() *ris.Record {
	rec := ris.NewRecord(ris.TypeJournal)
	rec.Add(ris.TagAuthor, "Old A")
	rec.Set(ris.TagTitle, "Coke gasification kinetics")
	rec.Set(ris.TagJournal, "Old Journal")
	rec.Set(ris.TagYear, "2018")
	rec.Set(ris.TagVolume, "7")
	return rec
}

func TestEnrich_JournalMerge(t *testing.T) {
	fl := &fakeLookup{work: &lookup.Work{
		DOI:            "10.1016/j.fuel.2019.01.002",
		Contributors:   []lookup.Contributor{{Given: "John", Family: "Smith"}, {Given: "Jane", Family: "Doe"}},
		ContainerTitle: "Fuel",
		Volume:         "12",
		Issue:          "4",
		Page:           "100-110",
		Year:           2019,
	}}
	rec := journalRecord()

	out := quietEnricher(fl).Enrich(context.Background(), rec)

	if !out.OK() || !out.WorkFound {
		t.Fatalf("outcome = %+v, want a successful work lookup", out)
	}
	if out.QueryBy != "title" || fl.gotTitle != "Coke gasification kinetics" {
		t.Errorf("queried by %q with title %q", out.QueryBy, fl.gotTitle)
	}

	wantAU := []string{"Smith, John", "Doe, Jane"}
	if got := rec.Values(ris.TagAuthor); !reflect.DeepEqual(got, wantAU) {
		t.Errorf("AU = %v, want %v", got, wantAU)
	}

	checks := map[string]string{
		ris.TagDOI:       "10.1016/j.fuel.2019.01.002",
		ris.TagJournal:   "Fuel",
		ris.TagSecondary: "Fuel",
		ris.TagVolume:    "12",
		ris.TagIssue:     "4",
		ris.TagStartPage: "100",
		ris.TagEndPage:   "110",
		ris.TagYear:      "2019",
	}
	for tag, want := range checks {
		if got := rec.Get(tag); got != want {
			t.Errorf("%s = %q, want %q", tag, got, want)
		}
	}
	if fl.bookCalls != 0 {
		t.Errorf("ISBN lookup called %d times for a journal article", fl.bookCalls)
	}
}

func TestEnrich_MissingYearPreservesExisting(t *testing.T) {
	fl := &fakeLookup{work: &lookup.Work{DOI: "10.1000/xyz123"}}
	rec := journalRecord()

	quietEnricher(fl).Enrich(context.Background(), rec)

	if got := rec.Get(ris.TagYear); got != "2018" {
		t.Errorf("PY = %q, want 2018", got)
	}
	if got := rec.Get(ris.TagJournal); got != "Old Journal" {
		t.Errorf("JO = %q, want Old Journal", got)
	}
	if got := rec.Get(ris.TagVolume); got != "7" {
		t.Errorf("VL = %q, want 7", got)
	}
	if got := rec.Values(ris.TagAuthor); len(got) != 1 || got[0] != "Old A" {
		t.Errorf("AU = %v, want [Old A]", got)
	}
}

func TestEnrich_PrefersDOI(t *testing.T) {
	fl := &fakeLookup{work: &lookup.Work{}}
	rec := journalRecord()
	rec.Set(ris.TagDOI, "10.1000/xyz123")

	out := quietEnricher(fl).Enrich(context.Background(), rec)

	if out.QueryBy != "doi" || fl.gotDOI != "10.1000/xyz123" {
		t.Errorf("queried by %q with DOI %q", out.QueryBy, fl.gotDOI)
	}
	if got := rec.Get(ris.TagDOI); got != "10.1000/xyz123" {
		t.Errorf("DO = %q, want existing value kept", got)
	}
}

func TestEnrich_AlternateTitle(t *testing.T) {
	fl := &fakeLookup{work: &lookup.Work{}}
	rec := ris.NewRecord(ris.TypeJournal)
	rec.Set(ris.TagPrimaryTitle, "Primary title only")

	quietEnricher(fl).Enrich(context.Background(), rec)

	if fl.gotTitle != "Primary title only" {
		t.Errorf("title = %q, want T1 value", fl.gotTitle)
	}
}

func TestEnrich_NothingToLookUp(t *testing.T) {
	fl := &fakeLookup{}
	rec := ris.NewRecord(ris.TypeJournal)
	rec.Set(ris.TagYear, "2020")

	out := quietEnricher(fl).Enrich(context.Background(), rec)

	if fl.workCalls != 0 {
		t.Errorf("lookup called %d times, want 0", fl.workCalls)
	}
	if out.QueryBy != "" || !out.OK() {
		t.Errorf("outcome = %+v", out)
	}
}

func TestEnrich_FailureIsNonFatal(t *testing.T) {
	fl := &fakeLookup{workErr: lookup.ErrRetriesExhausted}
	rec := journalRecord()
	before := ris.Serialize(rec)

	out := quietEnricher(fl).Enrich(context.Background(), rec)

	if out.OK() || out.WorkFound {
		t.Errorf("outcome = %+v, want a recorded failure", out)
	}
	if !errors.Is(out.Errors[0], lookup.ErrRetriesExhausted) {
		t.Errorf("error = %v", out.Errors[0])
	}
	if got := ris.Serialize(rec); got != before {
		t.Errorf("record changed on failure:\n%s\nwant\n%s", got, before)
	}
	if len(out.Warnings()) != 1 {
		t.Errorf("Warnings() = %v", out.Warnings())
	}
}

func TestEnrich_BookFieldsLimitedToJournalTypes(t *testing.T) {
	fl := &fakeLookup{
		work: &lookup.Work{ContainerTitle: "Series Name", Volume: "3", Page: "1-20", Year: 2015},
		book: &lookup.Book{Publisher: "Science Press", Place: "Beijing", Pages: "320"},
	}
	rec := ris.NewRecord(ris.TypeBook)
	rec.Set(ris.TagTitle, "Coke Science")
	rec.Set(ris.TagISBN, "9787030000000")

	out := quietEnricher(fl).Enrich(context.Background(), rec)

	if !out.BookFound || fl.gotISBN != "9787030000000" {
		t.Errorf("outcome = %+v, isbn = %q", out, fl.gotISBN)
	}
	if rec.Has(ris.TagJournal) || rec.Has(ris.TagVolume) {
		t.Errorf("book got journal fields: JO=%q VL=%q", rec.Get(ris.TagJournal), rec.Get(ris.TagVolume))
	}
	checks := map[string]string{
		ris.TagPublisher: "Science Press",
		ris.TagCity:      "Beijing",
		ris.TagStartPage: "1",
		ris.TagEndPage:   "320",
		ris.TagYear:      "2015",
		ris.TagSecondary: "Series Name",
	}
	for tag, want := range checks {
		if got := rec.Get(tag); got != want {
			t.Errorf("%s = %q, want %q", tag, got, want)
		}
	}
}

func TestEnrich_BookWithoutPageCount(t *testing.T) {
	fl := &fakeLookup{book: &lookup.Book{Publisher: "Elsevier"}}
	rec := ris.NewRecord(ris.TypeChapter)
	rec.Set(ris.TagISBN, "9780000000000")
	rec.Set(ris.TagStartPage, "45")

	out := quietEnricher(fl).Enrich(context.Background(), rec)

	if !out.BookFound {
		t.Fatalf("outcome = %+v", out)
	}
	if got := rec.Get(ris.TagStartPage); got != "45" {
		t.Errorf("SP = %q, want 45", got)
	}
	if rec.Has(ris.TagEndPage) {
		t.Errorf("EP = %q, want unset", rec.Get(ris.TagEndPage))
	}
}

func TestEnrich_DOIFromAttachment(t *testing.T) {
	fl := &fakeLookup{work: &lookup.Work{DOI: "10.1000/xyz123"}}
	rec := journalRecord()
	rec.Add(ris.TagFileAttach, "internal-pdf://paper.pdf")

	out := quietEnricher(fl, WithPDFExtractor(fakePDF{doi: "10.1000/xyz123"})).Enrich(context.Background(), rec)

	if out.PDFDOI != "10.1000/xyz123" || out.QueryBy != "doi" {
		t.Errorf("outcome = %+v", out)
	}
	if fl.gotDOI != "10.1000/xyz123" {
		t.Errorf("looked up DOI %q", fl.gotDOI)
	}
}

func TestEnrich_AttachmentErrorFallsBackToTitle(t *testing.T) {
	fl := &fakeLookup{work: &lookup.Work{}}
	rec := journalRecord()
	rec.Add(ris.TagFileAttach, "missing.pdf")

	out := quietEnricher(fl, WithPDFExtractor(fakePDF{err: errors.New("PDF not found")})).Enrich(context.Background(), rec)

	if out.QueryBy != "title" || !out.WorkFound {
		t.Errorf("outcome = %+v", out)
	}
	if len(out.Errors) != 1 {
		t.Errorf("Errors = %v, want the attachment error", out.Errors)
	}
}

func TestEnrichAll(t *testing.T) {
	fl := &fakeLookup{work: &lookup.Work{Year: 2021}}
	recs := []*ris.Record{journalRecord(), journalRecord()}

	var seen []int
	outcomes, err := quietEnricher(fl).EnrichAll(context.Background(), recs, func(i int, o Outcome) {
		seen = append(seen, i)
	})
	if err != nil {
		t.Fatalf("EnrichAll() error = %v", err)
	}
	if len(outcomes) != 2 || !reflect.DeepEqual(seen, []int{0, 1}) {
		t.Errorf("outcomes = %d, progress = %v", len(outcomes), seen)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes, err = quietEnricher(fl).EnrichAll(ctx, recs, nil)
	if !errors.Is(err, context.Canceled) || len(outcomes) != 0 {
		t.Errorf("cancelled EnrichAll() = %d outcomes, %v", len(outcomes), err)
	}
}

func TestFormatAuthor(t *testing.T) {
	tests := []struct {
		c    lookup.Contributor
		want string
	}{
		{lookup.Contributor{Given: "John", Family: "Smith"}, "Smith, John"},
		{lookup.Contributor{Family: "Consortium"}, "Consortium"},
		{lookup.Contributor{Given: "Plato"}, "Plato"},
	}
	for _, tt := range tests {
		if got := formatAuthor(tt.c); got != tt.want {
			t.Errorf("formatAuthor(%+v) = %q, want %q", tt.c, got, tt.want)
		}
	}
}
