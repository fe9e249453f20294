package roster

import (
	"strings"
	"testing"
)

func mustDefault(t *testing.T) *Index {
	t.Helper()
	idx, err := Default()
	if err != nil {
		t.Fatalf("load default roster: %v", err)
	}
	return idx
}

func TestLastName(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Aaron Jones", "jones"},
		{"A. Jones", "jones"},
		{"A.J. Brown", "brown"},
		{"Marvin Harrison Jr.", "harrison"},
		{"Marvin Harrison Jr", "harrison"},
		{"Kenneth Walker III", "walker"},
		{"Amon-Ra St. Brown", "brown"},
		{"Patrick Mahomes II", "mahomes"},
		{"Jones", "jones"},
		{"  ", ""},
		{"J.", ""},
		{"Bud . Fisher", "fisher"},
	}
	for _, tc := range cases {
		if got := LastName(tc.name); got != tc.want {
			t.Errorf("LastName(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestSameGivenInitial(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"A. Jones", "Aaron Jones", true},
		{"Jones", "Aaron Jones", true},
		{"Bryce Jones", "Aaron Jones", false},
		{"AJ Brown", "A.J. Brown", true},
		{"Fisher", "Bud Fisher", true},
	}
	for _, tc := range cases {
		if got := SameGivenInitial(tc.a, tc.b); got != tc.want {
			t.Errorf("SameGivenInitial(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestDefaultLoadsBundledRoster(t *testing.T) {
	idx := mustDefault(t)
	if idx.Len() < 400 {
		t.Fatalf("expected the bundled roster to have 400+ rows, got %d", idx.Len())
	}
}

func TestLookupExactCaseInsensitive(t *testing.T) {
	idx := mustDefault(t)

	p, ok := idx.Lookup("aaron JONES", "WR")
	if !ok {
		t.Fatal("expected exact match regardless of case and position")
	}
	if p.Name != "Aaron Jones" || p.Position != "RB" || p.Team != "MIN" {
		t.Errorf("unexpected player %+v", p)
	}
}

func TestLookupLastNameAndPosition(t *testing.T) {
	idx := mustDefault(t)

	p, ok := idx.Lookup("K. Walker", "RB")
	if !ok {
		t.Fatal("expected last-name match for K. Walker RB")
	}
	if p.Name != "Kenneth Walker III" {
		t.Errorf("expected Kenneth Walker III, got %q", p.Name)
	}

	p, ok = idx.Lookup("Marvin Harrison", "WR")
	if !ok || p.Name != "Marvin Harrison Jr." {
		t.Errorf("expected suffix-bearing canonical name, got %+v (ok=%v)", p, ok)
	}

	if _, ok := idx.Lookup("K. Walker", "QB"); ok {
		t.Error("last-name fallback must not cross positions")
	}
}

func TestLookupFirstEntryWinsOnCollision(t *testing.T) {
	players := strings.NewReader("Player,Position,Team\nAlpha Smith,WR,AAA\nBeta Smith,WR,BBB\n")
	idx, err := Load(players, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, ok := idx.Lookup("Gamma Smith", "WR")
	if !ok {
		t.Fatal("expected fallback match")
	}
	if p.Name != "Alpha Smith" {
		t.Errorf("expected first roster entry to win, got %q", p.Name)
	}
}

func TestLookupMiss(t *testing.T) {
	idx := mustDefault(t)
	if _, ok := idx.Lookup("Nobody Notaplayer", "QB"); ok {
		t.Error("expected no match")
	}
	if _, ok := idx.Lookup("", "QB"); ok {
		t.Error("expected empty name to miss")
	}
}

func TestByeWeeks(t *testing.T) {
	idx := mustDefault(t)

	cases := map[string]int{"PIT": 5, "MIN": 6, "ARI": 8, "SF": 14, "WAS": 12}
	for team, want := range cases {
		got, ok := idx.ByeWeek(team)
		if !ok || got != want {
			t.Errorf("ByeWeek(%s) = %d (ok=%v), want %d", team, got, ok, want)
		}
	}
	// Carolina has no DST row in the bundled roster, so no bye is derivable.
	if _, ok := idx.ByeWeek("CAR"); ok {
		t.Error("expected no bye for a team without a DST row")
	}
}

func TestLoadSkipsIncompleteRows(t *testing.T) {
	players := strings.NewReader("Player,Position,Team\nGood Player,QB,KC\n,RB,KC\nNo Team,WR\n")
	idx, err := Load(players, strings.NewReader("Week 10: Kansas City Chiefs\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("expected 1 valid row, got %d", idx.Len())
	}
	if _, ok := idx.ByeWeek("KC"); ok {
		t.Error("expected no bye: roster has no Kansas City DST row")
	}
}

func TestSearch(t *testing.T) {
	idx := mustDefault(t)
	got := idx.Search("harrison")
	if len(got) == 0 {
		t.Fatal("expected search hits for harrison")
	}
	for _, p := range got {
		if !strings.Contains(strings.ToLower(p.Name), "harrison") {
			t.Errorf("unexpected hit %q", p.Name)
		}
	}
}
