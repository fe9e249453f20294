package aggregator

import (
	"math"
	"strings"
	"testing"

	"github.com/pable/go-playcall/internal/model"
)

// rec builds a NormalizedRecord with no bye.
func rec(rank float64, name, pos, team string) model.NormalizedRecord {
	return model.NormalizedRecord{Rank: rank, Name: name, Position: pos, Team: team}
}

// mergeAll runs Merge then Recompute, the way a session ingests one source.
func mergeAll(existing []model.AggregatedPlayer, batch []model.NormalizedRecord, source string) []model.AggregatedPlayer {
	return Recompute(Merge(existing, batch, source))
}

func findPlayer(t *testing.T, players []model.AggregatedPlayer, name string) model.AggregatedPlayer {
	t.Helper()
	for _, p := range players {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("player %q not found", name)
	return model.AggregatedPlayer{}
}

func assertUniqueKeys(t *testing.T, players []model.AggregatedPlayer) {
	t.Helper()
	seen := make(map[string]bool)
	for _, p := range players {
		if seen[p.Key()] {
			t.Errorf("duplicate identity key %q", p.Key())
		}
		seen[p.Key()] = true
	}
}

// ---- Merge ----

func TestMergeCreatesPlayersInOrder(t *testing.T) {
	players := mergeAll(nil, []model.NormalizedRecord{
		rec(1, "Josh Allen", "QB", "BUF"),
		rec(2, "Aaron Jones", "RB", "MIN"),
	}, "ESPN")

	if len(players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(players))
	}
	if players[0].Name != "Josh Allen" || players[1].Name != "Aaron Jones" {
		t.Errorf("unexpected order: %q, %q", players[0].Name, players[1].Name)
	}
	if players[1].Ranks["ESPN"] != 2 || len(players[1].Ranks) != 1 {
		t.Errorf("expected single ESPN rank 2, got %v", players[1].Ranks)
	}
}

func TestMergeExistingThenNew(t *testing.T) {
	players := mergeAll(nil, []model.NormalizedRecord{rec(1, "Josh Allen", "QB", "BUF")}, "A")
	players = mergeAll(players, []model.NormalizedRecord{
		rec(3, "Zay Flowers", "WR", "BAL"),
		rec(2, "Josh Allen", "QB", "BUF"),
	}, "B")

	if len(players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(players))
	}
	if players[0].Name != "Josh Allen" || players[1].Name != "Zay Flowers" {
		t.Errorf("expected existing players first, got %q, %q", players[0].Name, players[1].Name)
	}
}

func TestMergeIdempotentReingestion(t *testing.T) {
	batch := []model.NormalizedRecord{
		rec(1, "Josh Allen", "QB", "BUF"),
		rec(7, "Aaron Jones", "RB", "MIN"),
	}
	once := mergeAll(nil, batch, "ESPN")
	twice := mergeAll(once, batch, "ESPN")

	if len(twice) != len(once) {
		t.Fatalf("re-ingestion changed player count: %d → %d", len(once), len(twice))
	}
	for i := range once {
		if len(twice[i].Ranks) != 1 || twice[i].Ranks["ESPN"] != once[i].Ranks["ESPN"] {
			t.Errorf("%s: ranks changed on re-ingestion: %v → %v", once[i].Name, once[i].Ranks, twice[i].Ranks)
		}
	}
}

func TestMergeLastRecordWinsWithinBatch(t *testing.T) {
	players := mergeAll(nil, []model.NormalizedRecord{
		rec(4, "Josh Allen", "QB", "BUF"),
		rec(9, "josh allen", "QB", "BUF"),
	}, "ESPN")

	if len(players) != 1 {
		t.Fatalf("expected 1 player, got %d", len(players))
	}
	if players[0].Ranks["ESPN"] != 9 {
		t.Errorf("expected last record to win, got %v", players[0].Ranks["ESPN"])
	}
}

func TestMergeFuzzyMatchPrecedence(t *testing.T) {
	players := mergeAll(nil, []model.NormalizedRecord{rec(3, "Aaron Jones", "RB", "MIN")}, "A")
	players = mergeAll(players, []model.NormalizedRecord{rec(5, "A. Jones", "RB", "MIN")}, "B")

	if len(players) != 1 {
		t.Fatalf("expected fuzzy match to reuse the player, got %d players", len(players))
	}
	p := players[0]
	if p.Name != "Aaron Jones" {
		t.Errorf("expected display name to stay Aaron Jones, got %q", p.Name)
	}
	if p.Ranks["B"] != 5 || p.Ranks["A"] != 3 {
		t.Errorf("unexpected ranks %v", p.Ranks)
	}
}

func TestMergeFuzzyRequiresSameTeamAndPosition(t *testing.T) {
	players := mergeAll(nil, []model.NormalizedRecord{rec(3, "Aaron Jones", "RB", "MIN")}, "A")
	players = mergeAll(players, []model.NormalizedRecord{
		rec(5, "A. Jones", "RB", "GB"),
		rec(6, "A Jones", "WR", "MIN"),
	}, "B")

	if len(players) != 3 {
		t.Errorf("expected no fuzzy merges across team/position, got %d players", len(players))
	}
}

func TestMergeFuzzyRejectsConflictingInitial(t *testing.T) {
	players := mergeAll(nil, []model.NormalizedRecord{rec(3, "Aaron Jones", "RB", "MIN")}, "A")
	players = mergeAll(players, []model.NormalizedRecord{rec(40, "Bryce Jones", "RB", "MIN")}, "B")

	if len(players) != 2 {
		t.Fatalf("expected distinct players for different first names, got %d", len(players))
	}
	if _, ok := findPlayer(t, players, "Aaron Jones").Ranks["B"]; ok {
		t.Error("Bryce Jones rank must not land on Aaron Jones")
	}
}

func TestMergeLongerNamePromotion(t *testing.T) {
	cases := []struct {
		short string
	}{
		{"Fisher"},
		{"B. Fisher"},
	}
	for _, tc := range cases {
		players := mergeAll(nil, []model.NormalizedRecord{rec(10, tc.short, "WR", "NYJ")}, "A")
		players = mergeAll(players, []model.NormalizedRecord{rec(14, "Bud Fisher", "WR", "NYJ")}, "B")

		if len(players) != 1 {
			t.Fatalf("%s: expected one player, got %d", tc.short, len(players))
		}
		p := players[0]
		if p.Name != "Bud Fisher" {
			t.Errorf("%s: expected promoted name Bud Fisher, got %q", tc.short, p.Name)
		}
		if p.Ranks["A"] != 10 || p.Ranks["B"] != 14 {
			t.Errorf("%s: ranks lost across rename: %v", tc.short, p.Ranks)
		}
		if p.Key() != "bud fisher" {
			t.Errorf("%s: expected identity key updated, got %q", tc.short, p.Key())
		}

		// A third source spelling the full name now matches exactly.
		players = mergeAll(players, []model.NormalizedRecord{rec(12, "Bud Fisher", "WR", "NYJ")}, "C")
		if len(players) != 1 || players[0].Ranks["C"] != 12 {
			t.Errorf("%s: expected exact match on promoted name, got %+v", tc.short, players)
		}
	}
}

func TestMergeGivenNameAloneStaysSeparate(t *testing.T) {
	players := mergeAll(nil, []model.NormalizedRecord{rec(10, "Bud", "WR", "NYJ")}, "A")
	players = mergeAll(players, []model.NormalizedRecord{rec(14, "Bud Fisher", "WR", "NYJ")}, "B")

	// "Bud" is read as a surname, which does not match "fisher".
	if len(players) != 2 {
		t.Fatalf("expected two players, got %+v", players)
	}
	if _, ok := findPlayer(t, players, "Bud Fisher").Ranks["A"]; ok {
		t.Error("rank for a bare given name must not land on Bud Fisher")
	}
}

func TestMergeShorterNameKeepsDisplayName(t *testing.T) {
	players := mergeAll(nil, []model.NormalizedRecord{rec(10, "Bud Fisher", "WR", "NYJ")}, "A")
	players = mergeAll(players, []model.NormalizedRecord{rec(11, "Fisher", "WR", "NYJ")}, "B")

	if len(players) != 1 || players[0].Name != "Bud Fisher" {
		t.Errorf("expected Bud Fisher to survive, got %+v", players)
	}
}

func TestMergeByeFillOnce(t *testing.T) {
	r := rec(5, "Zay Flowers", "WR", "BAL")
	players := mergeAll(nil, []model.NormalizedRecord{r}, "A")

	r.Bye = 9
	players = mergeAll(players, []model.NormalizedRecord{r}, "B")
	r.Bye = 10
	players = mergeAll(players, []model.NormalizedRecord{r}, "C")

	if players[0].Bye != 9 {
		t.Errorf("expected first non-empty bye 9 to stick, got %d", players[0].Bye)
	}
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	before := mergeAll(nil, []model.NormalizedRecord{rec(2, "Aaron Jones", "RB", "MIN")}, "A")
	snapshot := before[0].Ranks["A"]

	after := Merge(before, []model.NormalizedRecord{
		rec(8, "Aaron Jones", "RB", "MIN"),
		rec(5, "Aaron Jones Sr.", "RB", "MIN"),
	}, "A")

	if before[0].Ranks["A"] != snapshot || len(before[0].Ranks) != 1 {
		t.Errorf("input ranks mutated: %v", before[0].Ranks)
	}
	if before[0].Name != "Aaron Jones" {
		t.Errorf("input name mutated: %q", before[0].Name)
	}
	if after[0].Ranks["A"] != 5 {
		t.Errorf("expected merged rank 5, got %v", after[0].Ranks["A"])
	}
}

func TestMergeIdentityUniqueness(t *testing.T) {
	players := mergeAll(nil, []model.NormalizedRecord{
		rec(1, "Josh Allen", "QB", "BUF"),
		rec(2, "JOSH ALLEN", "QB", "BUF"),
		rec(3, "Aaron Jones", "RB", "MIN"),
		rec(4, "Daniel Jones", "QB", "IND"),
	}, "A")
	players = mergeAll(players, []model.NormalizedRecord{
		rec(1, "A. Jones", "RB", "MIN"),
		rec(2, "D. Jones", "QB", "IND"),
		rec(3, "josh allen", "QB", "BUF"),
		rec(4, "Mac Jones", "QB", "SF"),
	}, "B")

	assertUniqueKeys(t, players)
	if len(players) != 4 {
		t.Errorf("expected 4 players, got %d", len(players))
	}
}

// ---- Recompute ----

func TestRecomputeConsensus(t *testing.T) {
	players := []model.AggregatedPlayer{
		{Name: "One", Ranks: map[string]float64{"A": 1, "B": 4}},
		{Name: "Two", Ranks: map[string]float64{"A": 2, "B": 3, "C": 7}},
		{Name: "None", Ranks: map[string]float64{}},
		{Name: "Nil"},
	}
	got := Recompute(players)

	if got[0].SnakeRank != 2.5 {
		t.Errorf("One: expected 2.5, got %v", got[0].SnakeRank)
	}
	if got[1].SnakeRank != 4 {
		t.Errorf("Two: expected 4, got %v", got[1].SnakeRank)
	}
	for _, p := range got[2:] {
		if !math.IsInf(p.SnakeRank, 1) {
			t.Errorf("%s: expected +Inf, got %v", p.Name, p.SnakeRank)
		}
		if p.HasConsensus() {
			t.Errorf("%s: expected no consensus", p.Name)
		}
	}
	if players[0].SnakeRank != 0 {
		t.Error("Recompute mutated its input")
	}
}

func TestRecomputeIgnoresNonFinite(t *testing.T) {
	got := ConsensusRank(map[string]float64{"A": 3, "B": math.NaN(), "C": math.Inf(1)})
	if got != 3 {
		t.Errorf("expected 3, got %v", got)
	}
}

// ---- Sort / filter ----

func TestSortNoConsensusLast(t *testing.T) {
	players := Recompute([]model.AggregatedPlayer{
		{Name: "Empty", Ranks: map[string]float64{}},
		{Name: "Second", Ranks: map[string]float64{"A": 20}},
		{Name: "First", Ranks: map[string]float64{"A": 1}},
	})

	for _, dir := range []model.SortDirection{model.Ascending, model.Descending} {
		ps := model.ClonePlayers(players)
		Sort(ps, model.SortConfig{Key: model.KeySnakeRank, Direction: dir})
		if ps[len(ps)-1].Name != "Empty" {
			t.Errorf("%s: expected player without ranks last, got %q", dir, ps[len(ps)-1].Name)
		}
	}

	ps := model.ClonePlayers(players)
	Sort(ps, model.SortConfig{Key: model.KeySnakeRank, Direction: model.Ascending})
	if ps[0].Name != "First" || ps[1].Name != "Second" {
		t.Errorf("unexpected ascending order %q, %q", ps[0].Name, ps[1].Name)
	}
}

func TestSortBySourceAndName(t *testing.T) {
	players := []model.AggregatedPlayer{
		{Name: "Charlie", Ranks: map[string]float64{"ESPN": 2}},
		{Name: "Alpha", Ranks: map[string]float64{}},
		{Name: "Bravo", Ranks: map[string]float64{"ESPN": 1}},
	}

	Sort(players, model.SortConfig{Key: "ESPN", Direction: model.Descending})
	got := []string{players[0].Name, players[1].Name, players[2].Name}
	if strings.Join(got, ",") != "Charlie,Bravo,Alpha" {
		t.Errorf("unexpected source sort: %v", got)
	}

	Sort(players, model.SortConfig{Key: model.KeyName, Direction: model.Ascending})
	got = []string{players[0].Name, players[1].Name, players[2].Name}
	if strings.Join(got, ",") != "Alpha,Bravo,Charlie" {
		t.Errorf("unexpected name sort: %v", got)
	}
}

func TestFilterFlex(t *testing.T) {
	players := []model.AggregatedPlayer{
		{Name: "Q", Position: "QB"},
		{Name: "R", Position: "RB"},
		{Name: "W", Position: "WR"},
		{Name: "T", Position: "TE"},
		{Name: "K", Position: "K"},
	}
	got := Filter(players, []string{"Flex", "K"})
	if len(got) != 4 {
		t.Fatalf("expected 4 players, got %d", len(got))
	}
	for _, p := range got {
		if p.Position == "QB" {
			t.Error("QB must not pass a Flex/K filter")
		}
	}
	if len(Filter(players, nil)) != len(players) {
		t.Error("empty filter must return every player")
	}
}

func TestAvailablePositions(t *testing.T) {
	players := []model.AggregatedPlayer{
		{Position: "K"}, {Position: "WR"}, {Position: "QB"}, {Position: "DST"},
	}
	got := strings.Join(AvailablePositions(players), ",")
	if got != "QB,WR,Flex,K,DST" {
		t.Errorf("unexpected positions %q", got)
	}
	if len(AvailablePositions(nil)) != 0 {
		t.Error("expected no positions for an empty set")
	}
}
