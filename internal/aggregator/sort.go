package aggregator

import (
	"math"
	"sort"
	"strings"

	"github.com/pable/go-playcall/internal/model"
)

// FlexPositions are the positions a "Flex" filter expands to.
var FlexPositions = []string{"RB", "WR", "TE"}

// FilterOrder is the display order of position filters.
var FilterOrder = []string{"QB", "RB", "WR", "TE", "Flex", "K", "DST"}

// Sort orders players in place by cfg. Missing values, and a snake rank with
// no consensus, sort last in either direction. Ties keep their prior order.
func Sort(players []model.AggregatedPlayer, cfg model.SortConfig) {
	if cfg.Key == "" {
		return
	}
	desc := cfg.Direction == model.Descending
	sort.SliceStable(players, func(i, j int) bool {
		a, b := sortValue(&players[i], cfg.Key), sortValue(&players[j], cfg.Key)
		if a == nil || b == nil {
			return a != nil
		}
		c := compare(a, b)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func sortValue(p *model.AggregatedPlayer, key string) any {
	v := p.Value(key)
	if f, ok := v.(float64); ok && math.IsInf(f, 1) {
		return nil
	}
	return v
}

func compare(a, b any) int {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	}
	return 0
}

// Filter returns the players whose position is in positions, with "Flex"
// expanded to RB/WR/TE. An empty filter returns players unchanged.
func Filter(players []model.AggregatedPlayer, positions []string) []model.AggregatedPlayer {
	if len(positions) == 0 {
		return players
	}
	want := make(map[string]bool, len(positions)+len(FlexPositions))
	for _, pos := range positions {
		want[pos] = true
		if pos == "Flex" {
			for _, f := range FlexPositions {
				want[f] = true
			}
		}
	}
	var out []model.AggregatedPlayer
	for _, p := range players {
		if want[p.Position] {
			out = append(out, p)
		}
	}
	return out
}

// AvailablePositions lists the filter options present in players, in
// FilterOrder. Flex is offered when any RB, WR or TE is present.
func AvailablePositions(players []model.AggregatedPlayer) []string {
	have := make(map[string]bool)
	for _, p := range players {
		have[p.Position] = true
	}
	var out []string
	for _, pos := range FilterOrder {
		if pos == "Flex" {
			if have["RB"] || have["WR"] || have["TE"] {
				out = append(out, pos)
			}
			continue
		}
		if have[pos] {
			out = append(out, pos)
		}
	}
	return out
}
