package ris

import (
	"regexp"
	"strings"
)

// tagLineRegex matches "TT  - value". The value is optional so that the
// bare end marker "ER  -" is recognised.
var tagLineRegex = regexp.MustCompile(`^([A-Z0-9]{2})  -(?: (.*))?$`)

// numberPrefixRegex matches a leading "[12] " reference number.
var numberPrefixRegex = regexp.MustCompile(`^\s*\[\d+\]\s*`)

// ParseTagged splits RIS text into records. A TY line starts a new record
// when the current one already has content, and an ER line closes the
// current record. Lines that are not tag lines are ignored.
//
// An empty result means the text held no tag lines at all; callers use that
// to fall back to ParsePlain or the free-text parser.
func ParseTagged(text string) []*Record {
	var recs []*Record
	cur := &Record{fields: make(map[string][]string)}

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		if cur.Type() == "" {
			cur.fields[TagType] = []string{TypeGeneric}
		}
		recs = append(recs, cur)
		cur = &Record{fields: make(map[string][]string)}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := tagLineRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		tag, val := m[1], strings.TrimSpace(m[2])

		switch tag {
		case TagEnd:
			flush()
			continue
		case TagType:
			flush()
		}
		cur.append(tag, val)
	}
	flush()

	return recs
}

// ParsePlain wraps each non-empty line as a generic record. The line, minus
// any leading "[n]" number, is kept verbatim as both title and note so no
// information is lost.
func ParsePlain(text string) []*Record {
	var recs []*Record
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = StripNumberPrefix(line)
		if line == "" {
			continue
		}
		rec := NewRecord(TypeGeneric)
		rec.Set(TagTitle, line)
		rec.Set(TagNote, line)
		recs = append(recs, rec)
	}
	return recs
}

// Parse reads RIS text, falling back to ParsePlain when no tag line is
// present. plain reports whether the fallback was used.
func Parse(text string) (recs []*Record, plain bool) {
	if recs := ParseTagged(text); len(recs) > 0 {
		return recs, false
	}
	return ParsePlain(text), true
}

// StripNumberPrefix removes a leading "[n]" reference number.
func StripNumberPrefix(line string) string {
	return numberPrefixRegex.ReplaceAllString(line, "")
}
