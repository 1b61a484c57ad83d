package renumber

// CoverageRow is one line of the coverage report.
type CoverageRow struct {
	Number int     `json:"number"`
	Found  bool    `json:"found"`
	Tier   Tier    `json:"tier"`
	Score  float64 `json:"score,omitempty"`
	Title  string  `json:"title"` // export title of the assigned record
	Golden string  `json:"golden"`
}

// Coverage lists every golden number with the record it was given to,
// in ascending number order.
func (r Result) Coverage() []CoverageRow {
	byNumber := make(map[int]ExportRecord, len(r.Records))
	for _, rec := range r.Records {
		if rec.Assigned() {
			byNumber[rec.Number] = rec
		}
	}

	rows := make([]CoverageRow, 0, len(r.Golden))
	for _, g := range r.Golden {
		row := CoverageRow{Number: g.Number, Golden: g.Text}
		if rec, ok := byNumber[g.Number]; ok {
			row.Found = true
			row.Tier = rec.Tier
			row.Score = rec.Score
			row.Title = rec.Title
		}
		rows = append(rows, row)
	}
	return rows
}

// Complete reports whether every golden number was assigned.
func (r Result) Complete() bool {
	return len(r.Missing) == 0
}
