package renumber

import (
	"math"
	"sort"
)

// TitleThreshold is the minimum similarity for a title-tier match.
const TitleThreshold = 0.75

// Tier identifies the matching strategy that assigned a record.
type Tier int

const (
	TierNone Tier = iota
	TierTitle
	TierJournalYear
	TierYear
)

func (t Tier) String() string {
	switch t {
	case TierTitle:
		return "title"
	case TierJournalYear:
		return "journal+year"
	case TierYear:
		return "year"
	default:
		return "none"
	}
}

// MarshalText renders the tier by name in JSON output.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ExportRecord is the matchable view of one exported record. Index is the
// record's position in the export; Title, Journal and Year hold the text
// as read, and matching normalizes them.
type ExportRecord struct {
	Index   int     `json:"index"`
	Title   string  `json:"title"`
	Journal string  `json:"journal"`
	Year    string  `json:"year"`
	Number  int     `json:"number"` // assigned golden number, 0 if unassigned
	Tier    Tier    `json:"tier"`
	Score   float64 `json:"score,omitempty"` // title similarity, title tier only
}

// Assigned reports whether a golden number was given to the record.
func (r ExportRecord) Assigned() bool {
	return r.Number != 0
}

// Result is the outcome of matching.
type Result struct {
	Golden    []GoldenEntry  `json:"golden"`
	Records   []ExportRecord `json:"records"`
	Missing   []int          `json:"missing"`   // golden numbers with no record, ascending
	Unmatched []int          `json:"unmatched"` // positions of records left unassigned
}

type yearKey struct {
	journal string
	year    string
}

// matcher holds the transient state of one run. Records are addressed by
// position, so used is a set of positions.
type matcher struct {
	golden   []GoldenEntry
	records  []ExportRecord
	titles   []string
	journals []string
	years    []string
	used     map[int]bool
	assigned map[int]bool
}

// Match assigns golden numbers to records in three greedy passes: title
// similarity, then exact normalized journal and year, then year alone.
// Each pass only considers golden entries and records left over by the
// earlier passes, and no pass revisits an earlier assignment. Golden
// entries are visited in ascending number order and candidates in export
// order, so the result is deterministic.
func Match(golden []GoldenEntry, records []ExportRecord) Result {
	m := newMatcher(golden, records)
	m.matchTitles()
	m.matchIndexed(TierJournalYear, func(i int) yearKey {
		return yearKey{m.journals[i], m.years[i]}
	}, func(g GoldenEntry) yearKey {
		return yearKey{g.Journal, g.Year}
	})
	m.matchIndexed(TierYear, func(i int) yearKey {
		return yearKey{year: m.years[i]}
	}, func(g GoldenEntry) yearKey {
		return yearKey{year: g.Year}
	})
	return m.result()
}

func newMatcher(golden []GoldenEntry, records []ExportRecord) *matcher {
	g := make([]GoldenEntry, len(golden))
	copy(g, golden)
	sort.SliceStable(g, func(i, j int) bool { return g[i].Number < g[j].Number })

	m := &matcher{
		golden:   g,
		records:  make([]ExportRecord, len(records)),
		titles:   make([]string, len(records)),
		journals: make([]string, len(records)),
		years:    make([]string, len(records)),
		used:     make(map[int]bool),
		assigned: make(map[int]bool),
	}
	for i, r := range records {
		r.Number, r.Tier, r.Score = 0, TierNone, 0
		m.records[i] = r
		m.titles[i] = Normalize(r.Title)
		m.journals[i] = Normalize(r.Journal)
		m.years[i] = ExtractYear(r.Year)
		if m.years[i] == "" {
			m.years[i] = ExtractYear(r.Title)
		}
	}
	return m
}

func (m *matcher) assign(g GoldenEntry, i int, tier Tier, score float64) {
	m.records[i].Number = g.Number
	m.records[i].Tier = tier
	m.records[i].Score = score
	m.used[i] = true
	m.assigned[g.Number] = true
}

func (m *matcher) matchTitles() {
	for _, g := range m.golden {
		best, bestScore := -1, 0.0
		for i, title := range m.titles {
			if m.used[i] || title == "" {
				continue
			}
			// Strictly greater keeps the first record seen among equals.
			if s := ratio(g.Title, title); s > bestScore {
				best, bestScore = i, s
			}
		}
		if best >= 0 && bestScore >= TitleThreshold {
			m.assign(g, best, TierTitle, bestScore)
		}
	}
}

// matchIndexed buckets records by recordKey in export order and gives each
// unassigned golden entry the first unused record in its bucket. A missing
// year is a key like any other, so year-less entries pair with year-less
// records.
func (m *matcher) matchIndexed(tier Tier, recordKey func(int) yearKey, goldenKey func(GoldenEntry) yearKey) {
	index := make(map[yearKey][]int)
	for i := range m.records {
		k := recordKey(i)
		index[k] = append(index[k], i)
	}

	for _, g := range m.golden {
		if m.assigned[g.Number] {
			continue
		}
		for _, i := range index[goldenKey(g)] {
			if !m.used[i] {
				m.assign(g, i, tier, 0)
				break
			}
		}
	}
}

func (m *matcher) result() Result {
	res := Result{Golden: m.golden, Records: m.records}
	for _, g := range m.golden {
		if !m.assigned[g.Number] {
			res.Missing = append(res.Missing, g.Number)
		}
	}
	for i, r := range m.records {
		if !r.Assigned() {
			res.Unmatched = append(res.Unmatched, i)
		}
	}
	return res
}

// Order returns record positions sorted by assigned number. Unassigned
// records go last and keep their relative order.
func Order(records []ExportRecord) []int {
	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	key := func(i int) int {
		if n := records[i].Number; n != 0 {
			return n
		}
		return math.MaxInt
	}
	sort.SliceStable(idx, func(a, b int) bool { return key(idx[a]) < key(idx[b]) })
	return idx
}

// ByTier counts assignments per tier.
func (r Result) ByTier() map[Tier]int {
	counts := make(map[Tier]int)
	for _, rec := range r.Records {
		counts[rec.Tier]++
	}
	return counts
}
