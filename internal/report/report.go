package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-playcall/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// displayCell renders one player value for terminal output. Missing values
// render as "—".
func displayCell(p *model.AggregatedPlayer, key string) string {
	if key == model.KeySnakeRank {
		if !p.HasConsensus() {
			return "—"
		}
		return fmt.Sprintf("%.1f", p.SnakeRank)
	}
	switch v := p.Value(key).(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	}
	return "—"
}

// PrintPlayerTable writes the consolidated rankings table, columns in
// registry order.
func PrintPlayerTable(w io.Writer, players []model.AggregatedPlayer, cols []model.Column) {
	table := newTable(w)

	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c.Label
	}
	table.Header(header...)

	for i := range players {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = displayCell(&players[i], c.Key)
		}
		table.Append(row...)
	}
	table.Render()
}

// PrintColumns lists the column layout with each column's key.
func PrintColumns(w io.Writer, cols []model.Column) {
	table := newTable(w)
	table.Header("#", "KEY", "LABEL", "KIND")
	for i, c := range cols {
		kind := "source"
		switch c.Key {
		case model.KeyAITier, model.KeyFAABRec:
			kind = "computed"
		default:
			if model.IsPlayerField(c.Key) {
				kind = "fixed"
			}
		}
		table.Append(strconv.Itoa(i+1), c.Key, c.Label, kind)
	}
	table.Render()
}

// PrintRoster lists reference players with their bye week.
func PrintRoster(w io.Writer, players []model.ReferencePlayer, byes model.ByeWeekTable) {
	table := newTable(w)
	table.Header("PLAYER", "POS", "TEAM", "BYE")
	for _, p := range players {
		bye := "—"
		if b, ok := byes[p.Team]; ok {
			bye = strconv.Itoa(b)
		}
		table.Append(p.Name, p.Position, p.Team, bye)
	}
	table.Render()
}

// PipeTable renders the first limit players as a pipe-separated table with
// registry labels as the header, for use as language-model context. limit 0
// means every player; an empty set renders "".
func PipeTable(players []model.AggregatedPlayer, cols []model.Column, limit int) string {
	if len(players) == 0 {
		return ""
	}
	if limit > 0 && len(players) > limit {
		players = players[:limit]
	}
	var sb strings.Builder
	labels := make([]string, len(cols))
	for i, c := range cols {
		labels[i] = c.Label
	}
	sb.WriteString(strings.Join(labels, " | "))
	for i := range players {
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = displayCell(&players[i], c.Key)
			if cells[j] == "—" {
				cells[j] = "-"
			}
		}
		sb.WriteByte('\n')
		sb.WriteString(strings.Join(cells, " | "))
	}
	return sb.String()
}

// round1 rounds half away from zero to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// PrintRaw renders an arbitrary query result.
func PrintRaw(w io.Writer, cols []string, rows [][]string) {
	table := newTable(w)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	table.Header(header...)
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		table.Append(cells...)
	}
	table.Render()
}
