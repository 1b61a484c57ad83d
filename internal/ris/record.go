// Package ris defines the tagged citation record shared by every pipeline
// and its RIS text encoding.
package ris

import "sort"

// Tags used by refmend. RIS tags are always two characters.
const (
	TagType         = "TY"
	TagAuthor       = "AU"
	TagTitle        = "TI"
	TagPrimaryTitle = "T1"
	TagSecondary    = "T2"
	TagJournal      = "JO"
	TagCity         = "CY"
	TagPublisher    = "PB"
	TagYear         = "PY"
	TagVolume       = "VL"
	TagIssue        = "IS"
	TagStartPage    = "SP"
	TagEndPage      = "EP"
	TagDOI          = "DO"
	TagISBN         = "SN"
	TagNote         = "N1"
	TagFileAttach   = "L1"
	TagEnd          = "ER"
)

// Reference types written to the TY tag.
const (
	TypeJournal    = "JOUR"
	TypeBook       = "BOOK"
	TypeChapter    = "CHAP"
	TypeConference = "CONF"
	TypeReport     = "RPRT"
	TypeGeneric    = "GEN"
)

// Record is a citation keyed by tag, each tag holding one or more values
// in the order they were added.
type Record struct {
	fields map[string][]string
}

// NewRecord creates a record with the given reference type.
func NewRecord(refType string) *Record {
	r := &Record{fields: make(map[string][]string)}
	if refType != "" {
		r.fields[TagType] = []string{refType}
	}
	return r
}

// Get returns the first value for tag, or "" if the tag is absent.
func (r *Record) Get(tag string) string {
	vals := r.fields[tag]
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// Values returns a copy of all values for tag.
func (r *Record) Values(tag string) []string {
	vals := r.fields[tag]
	if len(vals) == 0 {
		return nil
	}
	out := make([]string, len(vals))
	copy(out, vals)
	return out
}

// Has reports whether the tag has at least one value.
func (r *Record) Has(tag string) bool {
	return len(r.fields[tag]) > 0
}

// Set replaces all values of tag with val. Empty values are ignored so a
// missing upstream value never clears an existing field.
func (r *Record) Set(tag, val string) {
	if val == "" {
		return
	}
	r.fields[tag] = []string{val}
}

// Add appends val to tag. Empty values are ignored.
func (r *Record) Add(tag, val string) {
	if val == "" {
		return
	}
	r.fields[tag] = append(r.fields[tag], val)
}

// Delete removes every value of tag.
func (r *Record) Delete(tag string) {
	delete(r.fields, tag)
}

// Type returns the TY value.
func (r *Record) Type() string {
	return r.Get(TagType)
}

// Len returns the number of distinct tags.
func (r *Record) Len() int {
	return len(r.fields)
}

// Tags returns the record's tags in lexicographic order.
func (r *Record) Tags() []string {
	tags := make([]string, 0, len(r.fields))
	for tag := range r.fields {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Title returns the first non-empty of TI and T1.
func (r *Record) Title() string {
	for _, tag := range []string{TagTitle, TagPrimaryTitle} {
		if v := r.Get(tag); v != "" {
			return v
		}
	}
	return ""
}

// append adds a raw value without the empty-value guard. Parsers use it so
// that an explicitly empty tag line survives a round trip.
func (r *Record) append(tag, val string) {
	r.fields[tag] = append(r.fields[tag], val)
}
