package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/pable/go-playcall/internal/columns"
	"github.com/pable/go-playcall/internal/model"
)

func twoSourceTable() ([]model.AggregatedPlayer, []model.Column) {
	reg := columns.New()
	reg.AddSourceColumn("ESPN")
	reg.AddSourceColumn("Yahoo")
	players := []model.AggregatedPlayer{
		{Name: "Josh Allen", Position: "QB", Team: "BUF", Bye: 7, Ranks: map[string]float64{"ESPN": 1, "Yahoo": 2}, SnakeRank: 1.5},
		{Name: `Marvin "MHJ" Harrison Jr., WR`, Position: "WR", Team: "ARI", Ranks: map[string]float64{"Yahoo": 14.5}, SnakeRank: 14.5},
	}
	return players, reg.Columns()
}

func TestWriteCSVFormatting(t *testing.T) {
	players, cols := twoSourceTable()
	players = append(players, model.AggregatedPlayer{Name: "No Ranks", Position: "K", Team: "KC", Ranks: map[string]float64{}, SnakeRank: math.Inf(1)})

	var buf bytes.Buffer
	if err := WriteCSV(&buf, players, cols); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Snake Rank,Player,Pos,Team,Bye,ESPN,Yahoo" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "1.5,Josh Allen,QB,BUF,7,1,2" {
		t.Errorf("unexpected row %q", lines[1])
	}
	if want := `14.5,"Marvin ""MHJ"" Harrison Jr., WR",WR,ARI,,,14.5`; lines[2] != want {
		t.Errorf("expected quoted row %q, got %q", want, lines[2])
	}
	if !strings.HasPrefix(lines[3], ",No Ranks,") {
		t.Errorf("expected empty snake rank for a player without ranks, got %q", lines[3])
	}
}

func TestWriteCSVRoundsSnakeRank(t *testing.T) {
	_, cols := twoSourceTable()
	players := []model.AggregatedPlayer{{Name: "A", Ranks: map[string]float64{"ESPN": 1, "Yahoo": 2.32}, SnakeRank: 1.66}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, players, cols); err != nil {
		t.Fatal(err)
	}
	row := strings.Split(strings.TrimSpace(buf.String()), "\n")[1]
	if !strings.HasPrefix(row, "1.7,") {
		t.Errorf("expected snake rank rounded to 1.7, got %q", row)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	players, cols := twoSourceTable()

	var buf bytes.Buffer
	if err := WriteCSV(&buf, players, cols); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	gotCols, gotPlayers, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	if len(gotCols) != len(cols) {
		t.Fatalf("expected %d columns, got %d", len(cols), len(gotCols))
	}
	for i := range cols {
		if gotCols[i].Key != cols[i].Key || gotCols[i].Label != cols[i].Label {
			t.Errorf("column %d: expected %+v, got %+v", i, cols[i], gotCols[i])
		}
	}
	if len(gotPlayers) != len(players) {
		t.Fatalf("expected %d players, got %d", len(players), len(gotPlayers))
	}
	for i, want := range players {
		got := gotPlayers[i]
		if got.Name != want.Name || got.Position != want.Position || got.Team != want.Team || got.Bye != want.Bye {
			t.Errorf("player %d: expected %+v, got %+v", i, want, got)
		}
		if len(got.Ranks) != len(want.Ranks) {
			t.Errorf("%s: expected ranks %v, got %v", want.Name, want.Ranks, got.Ranks)
		}
		for k, v := range want.Ranks {
			if got.Ranks[k] != v {
				t.Errorf("%s: rank %s expected %v, got %v", want.Name, k, v, got.Ranks[k])
			}
		}
	}
}

func TestSourceRecords(t *testing.T) {
	players, cols := twoSourceTable()
	got := SourceRecords(cols, players)
	if len(got["ESPN"]) != 1 || len(got["Yahoo"]) != 2 {
		t.Errorf("unexpected per-source records %v", got)
	}
	if order := SourceOrder(cols); strings.Join(order, ",") != "ESPN,Yahoo" {
		t.Errorf("unexpected source order %v", order)
	}
}

func TestPipeTable(t *testing.T) {
	players, cols := twoSourceTable()

	got := PipeTable(players, cols, 1)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %q", got)
	}
	if lines[0] != "Snake Rank | Player | Pos | Team | Bye | ESPN | Yahoo" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "1.5 | Josh Allen | QB | BUF | 7 | 1 | 2" {
		t.Errorf("unexpected row %q", lines[1])
	}
	if PipeTable(nil, cols, 50) != "" {
		t.Error("expected empty context for no players")
	}
}

func TestPrintPlayerTable(t *testing.T) {
	players, cols := twoSourceTable()
	var buf bytes.Buffer
	PrintPlayerTable(&buf, players, cols)

	out := buf.String()
	for _, want := range []string{"Josh Allen", "14.5", "—"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected table to contain %q:\n%s", want, out)
		}
	}
}

func TestJSONTable(t *testing.T) {
	players, cols := twoSourceTable()
	players = append(players, model.AggregatedPlayer{Name: "No Ranks", Position: "K", Team: "KC", Ranks: map[string]float64{}, SnakeRank: math.Inf(1)})

	got := JSONTable(players, cols, 0)
	if got.Total != 3 || len(got.Rows) != 3 {
		t.Fatalf("unexpected size total=%d rows=%d", got.Total, len(got.Rows))
	}
	if got.Columns[0] != "Snake Rank" || got.Columns[5] != "ESPN" {
		t.Errorf("unexpected columns %v", got.Columns)
	}
	if got.Rows[0]["ESPN"] != 1.0 || got.Rows[0]["Player"] != "Josh Allen" {
		t.Errorf("unexpected first row %v", got.Rows[0])
	}
	if got.Rows[1]["ESPN"] != nil || got.Rows[1]["Bye"] != nil {
		t.Errorf("expected nulls for missing values, got %v", got.Rows[1])
	}
	if got.Rows[2]["Snake Rank"] != nil {
		t.Errorf("expected null consensus, got %v", got.Rows[2]["Snake Rank"])
	}

	if limited := JSONTable(players, cols, 1); len(limited.Rows) != 1 || limited.Total != 3 {
		t.Errorf("unexpected limited table %+v", limited)
	}
}

func TestPrintRaw(t *testing.T) {
	var buf bytes.Buffer
	PrintRaw(&buf, []string{"name", "rank"}, [][]string{{"Josh Allen", "1"}, {"Zay Flowers", "NULL"}})
	out := buf.String()
	for _, want := range []string{"NAME", "Josh Allen", "NULL"} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}
}

func TestMarkdownPlain(t *testing.T) {
	out := Markdown("# Sleepers\n\n- **Jaylen Warren**: passing-down role\n", 80, false)
	if strings.Contains(out, "\x1b[") {
		t.Errorf("expected no ANSI escapes in plain output:\n%q", out)
	}
	for _, want := range []string{"Sleepers", "Jaylen Warren", "passing-down role"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected rendered output to contain %q:\n%s", want, out)
		}
	}
}
