// Package renumber reconciles exported citation records against an
// authoritative, numbered reference list and reports coverage.
package renumber

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnumRegex = regexp.MustCompile(`[^0-9a-z]+`)
	yearRegex     = regexp.MustCompile(`(19|20)\d{2}`)
)

// Normalize decomposes s, lowercases it and collapses every run of
// characters outside [0-9a-z] into a single space.
func Normalize(s string) string {
	s = strings.ToLower(norm.NFKD.String(s))
	s = nonAlnumRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ExtractYear returns the first 1900-2099 year in s, or "".
func ExtractYear(s string) string {
	return yearRegex.FindString(s)
}

// Similarity returns the sequence-matcher ratio of the normalized forms of
// a and b, in [0, 1].
func Similarity(a, b string) float64 {
	return ratio(Normalize(a), Normalize(b))
}

// ratio compares two already-normalized strings character by character.
func ratio(a, b string) float64 {
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
