package ris

import (
	"fmt"
	"strings"
)

// PreferredOrder is the order in which known tags are written. Any other
// tag follows in lexicographic order, then the ER end marker.
var PreferredOrder = []string{
	TagType, TagAuthor, TagTitle, TagSecondary, TagJournal, TagCity,
	TagPublisher, TagYear, TagVolume, TagIssue, TagStartPage, TagEndPage,
	TagDOI, TagISBN, TagNote,
}

var preferredSet = func() map[string]bool {
	m := make(map[string]bool, len(PreferredOrder))
	for _, tag := range PreferredOrder {
		m[tag] = true
	}
	return m
}()

// Serialize renders a record as RIS text without a trailing newline.
func Serialize(rec *Record) string {
	var b strings.Builder

	for _, tag := range PreferredOrder {
		for _, v := range rec.fields[tag] {
			writeLine(&b, tag, v)
		}
	}
	for _, tag := range rec.Tags() {
		if preferredSet[tag] || tag == TagEnd {
			continue
		}
		for _, v := range rec.fields[tag] {
			writeLine(&b, tag, v)
		}
	}
	b.WriteString(TagEnd + "  -")

	return b.String()
}

// SerializeAll renders records separated by a blank line.
func SerializeAll(recs []*Record) string {
	entries := make([]string, len(recs))
	for i, rec := range recs {
		entries[i] = Serialize(rec)
	}
	return strings.Join(entries, "\n\n")
}

func writeLine(b *strings.Builder, tag, val string) {
	b.WriteString(fmt.Sprintf("%s  - %s\n", tag, val))
}
