package freetext

import "github.com/matsen/refmend/internal/ris"

// Record converts the parsed line to a RIS record. Books put their source
// (series or edition) in T2; everything else treats it as the journal.
func (p ParsedLine) Record() *ris.Record {
	rec := ris.NewRecord(p.Type)
	for _, au := range p.Authors {
		rec.Add(ris.TagAuthor, au)
	}
	rec.Set(ris.TagTitle, p.Title)
	if p.Type == ris.TypeBook {
		rec.Set(ris.TagSecondary, p.Source)
	} else {
		rec.Set(ris.TagJournal, p.Source)
	}
	rec.Set(ris.TagYear, p.Year)
	rec.Set(ris.TagVolume, p.Volume)
	rec.Set(ris.TagIssue, p.Issue)
	rec.Set(ris.TagStartPage, p.StartPage)
	rec.Set(ris.TagEndPage, p.EndPage)
	rec.Set(ris.TagDOI, p.DOI)
	rec.Set(ris.TagISBN, p.ISBN)
	rec.Set(ris.TagPublisher, p.Publisher)
	rec.Set(ris.TagCity, p.City)
	rec.Set(ris.TagNote, p.Raw)
	return rec
}

// Records parses every non-empty line of text into RIS records.
func Records(text string) []*ris.Record {
	lines := ParseText(text)
	recs := make([]*ris.Record, len(lines))
	for i, p := range lines {
		recs[i] = p.Record()
	}
	return recs
}
