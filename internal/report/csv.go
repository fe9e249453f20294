package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pable/go-playcall/internal/columns"
	"github.com/pable/go-playcall/internal/model"
)

// csvCell renders one export cell. The snake rank is rounded to one decimal
// and left empty when the player has no consensus.
func csvCell(p *model.AggregatedPlayer, key string) string {
	if key == model.KeySnakeRank {
		if !p.HasConsensus() {
			return ""
		}
		return strconv.FormatFloat(round1(p.SnakeRank), 'f', 1, 64)
	}
	switch v := p.Value(key).(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	}
	return ""
}

// WriteCSV writes a header row of column labels followed by one row per
// player, columns in registry order.
func WriteCSV(w io.Writer, players []model.AggregatedPlayer, cols []model.Column) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Label
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range players {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = csvCell(&players[i], c.Key)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV. Source columns come back as
// Ranks; a missing consensus reads as +Inf.
func ReadCSV(r io.Reader) ([]model.Column, []model.AggregatedPlayer, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, errors.New("read csv: empty file")
	}

	cols := make([]model.Column, len(rows[0]))
	for i, label := range rows[0] {
		label = strings.TrimSpace(label)
		cols[i] = model.Column{Key: columns.KeyForLabel(label), Label: label, Sortable: true}
	}

	players := make([]model.AggregatedPlayer, 0, len(rows)-1)
	for n, row := range rows[1:] {
		p := model.AggregatedPlayer{Ranks: make(map[string]float64), SnakeRank: math.Inf(1)}
		for i, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			key := cols[i].Key
			switch key {
			case model.KeyName:
				p.Name = cell
				continue
			case model.KeyPosition:
				p.Position = cell
				continue
			case model.KeyTeam:
				p.Team = cell
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("read csv: row %d, column %q: %w", n+2, cols[i].Label, err)
			}
			switch key {
			case model.KeySnakeRank:
				p.SnakeRank = v
			case model.KeyBye:
				p.Bye = int(v)
			case model.KeyAITier:
				p.AITier = &v
			case model.KeyFAABRec:
				p.FAABRec = &v
			default:
				p.Ranks[key] = v
			}
		}
		players = append(players, p)
	}
	return cols, players, nil
}

// SourceRecords flattens players read back from a CSV into per-source raw
// records, the shape the merge pipeline ingests.
func SourceRecords(cols []model.Column, players []model.AggregatedPlayer) map[string][]model.RawRecord {
	out := make(map[string][]model.RawRecord)
	for _, c := range cols {
		if model.IsPlayerField(c.Key) {
			continue
		}
		for _, p := range players {
			if v, ok := p.Ranks[c.Key]; ok {
				out[c.Key] = append(out[c.Key], model.RawRecord{Rank: v, Name: p.Name, Position: p.Position, Team: p.Team})
			}
		}
	}
	return out
}

// SourceOrder lists the source column keys of cols in order.
func SourceOrder(cols []model.Column) []string {
	var out []string
	for _, c := range cols {
		if !model.IsPlayerField(c.Key) {
			out = append(out, c.Key)
		}
	}
	return out
}
