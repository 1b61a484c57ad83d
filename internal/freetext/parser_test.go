package freetext

import (
	"reflect"
	"testing"

	"github.com/matsen/refmend/internal/ris"
)

func TestParseLine_JournalArticle(t *testing.T) {
	line := "[1] Smith J, Doe A, et al. Coke gasification kinetics. J Environ Sci. 2019; 12(4): 100-110. doi:10.1000/xyz123."
	p := ParseLine(line)

	if !reflect.DeepEqual(p.Authors, []string{"Smith J", "Doe A"}) {
		t.Errorf("Authors = %v, want [Smith J Doe A]", p.Authors)
	}
	if p.Title != "Coke gasification kinetics" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Source != "J Environ Sci" {
		t.Errorf("Source = %q", p.Source)
	}

	checks := []struct {
		field, got, want string
	}{
		{"Year", p.Year, "2019"},
		{"Volume", p.Volume, "12"},
		{"Issue", p.Issue, "4"},
		{"StartPage", p.StartPage, "100"},
		{"EndPage", p.EndPage, "110"},
		{"DOI", p.DOI, "10.1000/xyz123"},
		{"Type", p.Type, ris.TypeJournal},
		{"Raw", p.Raw, line},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
}

func TestParseLine_Classification(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"conference", "Lee K. Deep nets for coke. Proceedings of ICML. 2020.", ris.TypeConference},
		{"conference keyword", "Lee K. Coke. International Conference on Carbon. 2020.", ris.TypeConference},
		{"report", "Agency X. Emission factors. Technical Report 42. 2011.", ris.TypeReport},
		{"standard", "ISO 9001 Quality management systems. 2015.", ris.TypeReport},
		{"book by isbn", "Brown T. Carbon Materials. 2nd ed. ISBN 978-3-16-148410-0.", ris.TypeBook},
		{"book by press", "Wang L. Coke Science. Science Press; 2010.", ris.TypeBook},
		{"journal", "J Environ Sci. 15(2): 45-60.", ris.TypeJournal},
		{"generic", "Some unstructured note about coke.", ris.TypeGeneric},
		{"conference wins over journal", "Proceedings of the Carbon Conference. 15(2): 1-9.", ris.TypeConference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLine(tt.line).Type; got != tt.want {
				t.Errorf("ParseLine(%q).Type = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseLine_ISBN(t *testing.T) {
	p := ParseLine("Brown T. Carbon Materials. 2nd ed. ISBN 978-3-16-148410-0.")
	if p.ISBN != "978-3-16-148410-0" {
		t.Errorf("ISBN = %q, want 978-3-16-148410-0", p.ISBN)
	}
	if p.Year != "" {
		t.Errorf("Year = %q, want empty", p.Year)
	}
}

func TestParseLine_PublisherAndCity(t *testing.T) {
	p := ParseLine("Wang L; Zhang Q. Coke Science. Beijing; Science Press; 2010.")

	if !reflect.DeepEqual(p.Authors, []string{"Wang L", "Zhang Q"}) {
		t.Errorf("Authors = %v", p.Authors)
	}
	if p.Publisher != "Science Press" {
		t.Errorf("Publisher = %q, want Science Press", p.Publisher)
	}
	if p.City != "Beijing" {
		t.Errorf("City = %q, want Beijing", p.City)
	}
	if p.Year != "2010" {
		t.Errorf("Year = %q, want 2010", p.Year)
	}
}

func TestParseLine_MissingSegments(t *testing.T) {
	p := ParseLine("Smith J")
	if !reflect.DeepEqual(p.Authors, []string{"Smith J"}) {
		t.Errorf("Authors = %v", p.Authors)
	}
	if p.Title != "" || p.Source != "" {
		t.Errorf("Title/Source should be empty, got %q / %q", p.Title, p.Source)
	}
	if p.Type != ris.TypeGeneric {
		t.Errorf("Type = %q, want GEN", p.Type)
	}
}

func TestParseLine_NeverFails(t *testing.T) {
	inputs := []string{"", "   ", ".", ". . . .", "[12]", ";;;", ": -", "((((", "ISBN", "10./"}
	for _, in := range inputs {
		p := ParseLine(in)
		if p.Type == "" {
			t.Errorf("ParseLine(%q) produced an empty type", in)
		}
	}
}

func TestParsedLine_Record(t *testing.T) {
	p := ParseLine("Brown T. Carbon Materials. Elsevier Press; London; 2nd ed. ISBN 978-3-16-148410-0.")
	rec := p.Record()

	if rec.Type() != ris.TypeBook {
		t.Fatalf("Type() = %q, want BOOK", rec.Type())
	}
	if rec.Get(ris.TagSecondary) == "" {
		t.Error("book source should be written to T2")
	}
	if rec.Has(ris.TagJournal) {
		t.Error("book should not carry JO")
	}
	if rec.Get(ris.TagISBN) != "978-3-16-148410-0" {
		t.Errorf("SN = %q", rec.Get(ris.TagISBN))
	}
	if rec.Get(ris.TagNote) != p.Raw {
		t.Errorf("N1 = %q, want raw line", rec.Get(ris.TagNote))
	}

	jour := ParseLine("Smith J. Title. Fuel. 2018; 3(1): 1-2.").Record()
	if jour.Get(ris.TagJournal) != "Fuel" {
		t.Errorf("JO = %q, want Fuel", jour.Get(ris.TagJournal))
	}
}

func TestRecords_SkipsBlankLines(t *testing.T) {
	recs := Records("Smith J. One. Fuel. 2018.\n\n  \nDoe A. Two. Carbon. 2019.\n")
	if len(recs) != 2 {
		t.Fatalf("Records() returned %d, want 2", len(recs))
	}
	if recs[1].Get(ris.TagTitle) != "Two" {
		t.Errorf("TI = %q, want Two", recs[1].Get(ris.TagTitle))
	}
}
