// Package endnote reads and rewrites EndNote XML library exports.
package endnote

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/matsen/refmend/internal/renumber"
)

// Declaration is written ahead of a document without one.
const Declaration = `<?xml version="1.0" encoding="UTF-8"?>`

// Field paths, relative to a <record>.
var (
	recordExpr    = xpath.MustCompile("//record")
	recNumberExpr = xpath.MustCompile("rec-number")
	titleExpr     = xpath.MustCompile("titles/title")
	journalExpr   = xpath.MustCompile("periodical/full-title")
	publisherExpr = xpath.MustCompile("publisher")
	yearExpr      = xpath.MustCompile("dates/year")
)

// Export is a parsed EndNote XML document. Records are addressed by their
// position in document order.
type Export struct {
	doc     *xmlquery.Node
	records []*xmlquery.Node
}

// Load parses an EndNote XML export.
func Load(r io.Reader) (*Export, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing EndNote XML: %w", err)
	}
	return &Export{doc: doc, records: xmlquery.QuerySelectorAll(doc, recordExpr)}, nil
}

// declaration returns the document's <?xml ...?> node. The parser supplies
// one when the source has none.
func (e *Export) declaration() *xmlquery.Node {
	for c := e.doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.DeclarationNode && c.Data == "xml" {
			return c
		}
	}
	return nil
}

// LoadFile parses the EndNote XML export at path.
func LoadFile(path string) (*Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Len returns the number of records.
func (e *Export) Len() int {
	return len(e.records)
}

// Records returns the matchable fields of every record. The journal falls
// back to the publisher, and the year to one found in the title.
func (e *Export) Records() []renumber.ExportRecord {
	out := make([]renumber.ExportRecord, len(e.records))
	for i, rec := range e.records {
		title := text(rec, titleExpr)
		journal := text(rec, journalExpr)
		if journal == "" {
			journal = text(rec, publisherExpr)
		}
		year := renumber.ExtractYear(text(rec, yearExpr))
		if year == "" {
			year = renumber.ExtractYear(title)
		}
		out[i] = renumber.ExportRecord{Index: i, Title: title, Journal: journal, Year: year}
	}
	return out
}

// Number returns the record's current rec-number text.
func (e *Export) Number(i int) string {
	return text(e.records[i], recNumberExpr)
}

// SetNumber rewrites the record's rec-number, creating the element when
// the record has none.
func (e *Export) SetNumber(i, n int) {
	rec := e.records[i]
	num := xmlquery.QuerySelector(rec, recNumberExpr)
	if num == nil {
		num = &xmlquery.Node{Type: xmlquery.ElementNode, Data: "rec-number"}
		prependChild(rec, num)
	}
	for c := num.FirstChild; c != nil; c = num.FirstChild {
		xmlquery.RemoveFromTree(c)
	}
	xmlquery.AddChild(num, &xmlquery.Node{Type: xmlquery.TextNode, Data: strconv.Itoa(n)})
}

// Reorder moves the records so they appear in the given order under the
// parent of the first record. order must be a permutation of record
// positions; afterwards position i refers to the record that was at
// order[i].
func (e *Export) Reorder(order []int) error {
	if len(order) != len(e.records) {
		return fmt.Errorf("reorder: got %d positions for %d records", len(order), len(e.records))
	}
	seen := make([]bool, len(order))
	for _, i := range order {
		if i < 0 || i >= len(order) || seen[i] {
			return fmt.Errorf("reorder: invalid or repeated position %d", i)
		}
		seen[i] = true
	}
	if len(e.records) == 0 {
		return nil
	}

	parent := e.records[0].Parent
	parents := map[*xmlquery.Node]bool{}
	for _, rec := range e.records {
		if rec.Parent != nil {
			parents[rec.Parent] = true
		}
		xmlquery.RemoveFromTree(rec)
	}
	for p := range parents {
		dropBlankText(p)
	}

	reordered := make([]*xmlquery.Node, len(order))
	for pos, i := range order {
		rec := e.records[i]
		xmlquery.AddChild(parent, &xmlquery.Node{Type: xmlquery.TextNode, Data: "\n"})
		xmlquery.AddChild(parent, rec)
		reordered[pos] = rec
	}
	xmlquery.AddChild(parent, &xmlquery.Node{Type: xmlquery.TextNode, Data: "\n"})
	e.records = reordered
	return nil
}

// Renumber writes the assigned numbers into the records and sorts them by
// number, unassigned records last. records must come from Records.
func (e *Export) Renumber(records []renumber.ExportRecord) error {
	if len(records) != len(e.records) {
		return fmt.Errorf("renumber: got %d records for an export of %d", len(records), len(e.records))
	}
	for i, r := range records {
		if r.Assigned() {
			e.SetNumber(i, r.Number)
		}
	}
	return e.Reorder(renumber.Order(records))
}

// WriteTo serializes the document as UTF-8 behind an XML declaration.
func (e *Export) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	if decl := e.declaration(); decl != nil {
		decl.SetAttr("encoding", "UTF-8")
		if next := decl.NextSibling; next != nil && next.Type == xmlquery.ElementNode {
			xmlquery.AddImmediateSibling(decl, &xmlquery.Node{Type: xmlquery.TextNode, Data: "\n"})
		}
	} else if _, err := io.WriteString(cw, Declaration+"\n"); err != nil {
		return cw.n, err
	}
	err := e.doc.WriteWithOptions(cw)
	return cw.n, err
}

// WriteFile writes the document to path.
func (e *Export) WriteFile(path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := e.WriteTo(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func text(n *xmlquery.Node, expr *xpath.Expr) string {
	if found := xmlquery.QuerySelector(n, expr); found != nil {
		return strings.TrimSpace(found.InnerText())
	}
	return ""
}

func prependChild(parent, n *xmlquery.Node) {
	first := parent.FirstChild
	if first == nil {
		xmlquery.AddChild(parent, n)
		return
	}
	n.Parent = parent
	n.PrevSibling = nil
	n.NextSibling = first
	first.PrevSibling = n
	parent.FirstChild = n
}

func dropBlankText(parent *xmlquery.Node) {
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == xmlquery.TextNode && strings.TrimSpace(c.Data) == "" {
			xmlquery.RemoveFromTree(c)
		}
		c = next
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
