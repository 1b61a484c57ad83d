package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFindDOI(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "Available at doi: 10.1016/j.fuel.2019.01.002 online", "10.1016/j.fuel.2019.01.002"},
		{"trailing punctuation", "See https://doi.org/10.1000/xyz123).", "10.1000/xyz123"},
		{"first of several", "10.1234/first and 10.5678/second", "10.1234/first"},
		{"too short registrant", "10.12/abc", ""},
		{"no suffix", "prefix 10.1234/ only", ""},
		{"none", "no identifier on this page", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findDOI(tt.text); got != tt.want {
				t.Errorf("findDOI(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestResolveAttachment(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "PDF", "123"), 0755); err != nil {
		t.Fatal(err)
	}
	plain := filepath.Join(dir, "paper.pdf")
	internal := filepath.Join(dir, "PDF", "123", "paper.pdf")
	for _, p := range []string{plain, internal} {
		if err := os.WriteFile(p, []byte("%PDF-1.4"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"relative", "paper.pdf", plain},
		{"absolute", plain, plain},
		{"file url", "file://" + filepath.ToSlash(plain), plain},
		{"internal-pdf", "internal-pdf://123/paper.pdf", internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveAttachment(dir, tt.ref)
			if err != nil {
				t.Fatalf("ResolveAttachment() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveAttachment(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestResolveAttachment_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ResolveAttachment(dir, "  "); err == nil {
		t.Error("expected error for empty reference")
	}

	_, err := ResolveAttachment(dir, "missing.pdf")
	if err == nil || !strings.Contains(err.Error(), "PDF not found") {
		t.Errorf("error = %v, want PDF not found", err)
	}
}

func TestExtractDOI_NotAPDF(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.pdf"), []byte("not a pdf"), 0644); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor(dir, WithMaxPages(1))
	if e.maxPages != 1 {
		t.Errorf("maxPages = %d, want 1", e.maxPages)
	}
	if _, err := e.ExtractDOI("bad.pdf"); err == nil {
		t.Error("expected error for a file that is not a PDF")
	}
}
