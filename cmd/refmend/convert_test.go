package main

import (
	"testing"

	"github.com/matsen/refmend/internal/freetext"
)

func TestBuildConvertResult(t *testing.T) {
	lines := freetext.ParseText(`1. Smith J, Doe A. Coke gasification kinetics. Fuel. 2019;12(4):100-110. doi:10.1000/xyz123
2. Brown K. Handbook of coal analysis. Elsevier, Amsterdam, 2005. ISBN 978-3-16-148410-0`)

	result := buildConvertResult("refs.txt", "refs.ris", lines)

	if result.Records != 2 {
		t.Fatalf("Records = %d, want 2", result.Records)
	}
	if result.Types["JOUR"] != 1 || result.Types["BOOK"] != 1 {
		t.Errorf("Types = %v, want JOUR 1 and BOOK 1", result.Types)
	}
	if result.Entries[0].DOI != "10.1000/xyz123" {
		t.Errorf("Entries[0].DOI = %q", result.Entries[0].DOI)
	}
	if result.Entries[1].ISBN == "" {
		t.Error("Entries[1].ISBN should be set")
	}
}

func TestBuildConvertResult_UntitledUsesRawLine(t *testing.T) {
	lines := []freetext.ParsedLine{{Raw: "just some words", Type: "GEN"}}
	result := buildConvertResult("a", "b", lines)
	if result.Entries[0].Title != "just some words" {
		t.Errorf("Title = %q, want raw line", result.Entries[0].Title)
	}
}

func TestFormatTypeCounts(t *testing.T) {
	tests := []struct {
		counts map[string]int
		want   string
	}{
		{nil, "none"},
		{map[string]int{"JOUR": 3}, "JOUR 3"},
		{map[string]int{"JOUR": 3, "BOOK": 1, "CHAP": 2}, "BOOK 1, CHAP 2, JOUR 3"},
	}
	for _, tt := range tests {
		if got := formatTypeCounts(tt.counts); got != tt.want {
			t.Errorf("formatTypeCounts(%v) = %q, want %q", tt.counts, got, tt.want)
		}
	}
}
