package report

import (
	"github.com/pable/go-playcall/internal/model"
)

// TableJSON is the machine-readable form of the rankings table. Each row
// maps a column label to a number, a string, or null when the player has no
// value for that column.
type TableJSON struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Total   int              `json:"total"`
}

// JSONTable builds a TableJSON from the first limit players (0 = all).
// A missing consensus encodes as null rather than +Inf.
func JSONTable(players []model.AggregatedPlayer, cols []model.Column, limit int) TableJSON {
	out := TableJSON{Columns: make([]string, len(cols)), Rows: []map[string]any{}, Total: len(players)}
	for i, c := range cols {
		out.Columns[i] = c.Label
	}
	if limit > 0 && len(players) > limit {
		players = players[:limit]
	}
	for i := range players {
		p := &players[i]
		row := make(map[string]any, len(cols))
		for _, c := range cols {
			v := p.Value(c.Key)
			if c.Key == model.KeySnakeRank {
				if p.HasConsensus() {
					v = round1(p.SnakeRank)
				} else {
					v = nil
				}
			}
			row[c.Label] = v
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
