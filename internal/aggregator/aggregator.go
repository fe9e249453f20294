// Package aggregator merges normalized per-source rankings into one ledger
// per player and computes the consensus ("snake") rank.
package aggregator

import (
	"math"
	"strings"

	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/roster"
)

type fuzzyKey struct {
	lastName string
	position string
	team     string
}

// Merge folds batch into existing under sourceKey and returns the new set:
// existing players in their input order followed by new players in creation
// order. existing is never mutated. The SnakeRank of every returned player is
// stale until Recompute runs.
func Merge(existing []model.AggregatedPlayer, batch []model.NormalizedRecord, sourceKey string) []model.AggregatedPlayer {
	out := make([]model.AggregatedPlayer, len(existing), len(existing)+len(batch))
	copy(out, existing)
	owned := make([]bool, len(existing)) // Ranks map already copied for this merge

	// ---- Indexes over the set as it stands at merge start. ----

	byKey := make(map[string]int, len(out))
	fuzzy := make(map[fuzzyKey]int, len(out))
	for i := range out {
		byKey[out[i].Key()] = i
		if ln := roster.LastName(out[i].Name); ln != "" {
			k := fuzzyKey{ln, out[i].Position, out[i].Team}
			if _, taken := fuzzy[k]; !taken {
				fuzzy[k] = i
			}
		}
	}

	// ---- Fold the batch in, one record at a time. ----

	for _, rec := range batch {
		i, found := byKey[strings.ToLower(rec.Name)]
		if !found {
			i, found = fuzzyMatch(out, byKey, fuzzy, rec)
		}

		if !found {
			out = append(out, model.AggregatedPlayer{
				Name:     rec.Name,
				Position: rec.Position,
				Team:     rec.Team,
				Bye:      rec.Bye,
				Ranks:    map[string]float64{sourceKey: rec.Rank},
			})
			byKey[strings.ToLower(rec.Name)] = len(out) - 1
			continue
		}

		p := &out[i]
		if i < len(owned) && !owned[i] {
			p.Ranks = copyRanks(p.Ranks)
			owned[i] = true
		}
		if len(rec.Name) > len(p.Name) {
			delete(byKey, p.Key())
			p.Name = rec.Name
			byKey[p.Key()] = i
		}
		p.Ranks[sourceKey] = rec.Rank
		if p.Bye == 0 {
			p.Bye = rec.Bye
		}
	}
	return out
}

// fuzzyMatch resolves rec through the (last name, position, team) index, then
// re-resolves the candidate by its current display name so a rename earlier
// in the batch is honoured. A record whose first initial contradicts the
// candidate's is not merged.
func fuzzyMatch(out []model.AggregatedPlayer, byKey map[string]int, fuzzy map[fuzzyKey]int, rec model.NormalizedRecord) (int, bool) {
	ln := roster.LastName(rec.Name)
	if ln == "" {
		return 0, false
	}
	ci, ok := fuzzy[fuzzyKey{ln, rec.Position, rec.Team}]
	if !ok {
		return 0, false
	}
	cand := out[ci]
	if !roster.SameGivenInitial(rec.Name, cand.Name) {
		return 0, false
	}
	i, ok := byKey[cand.Key()]
	return i, ok
}

func copyRanks(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Recompute returns a copy of players with every SnakeRank set to the mean
// of the player's finite ranks, or +Inf when there are none.
func Recompute(players []model.AggregatedPlayer) []model.AggregatedPlayer {
	out := make([]model.AggregatedPlayer, len(players))
	for i, p := range players {
		p.SnakeRank = ConsensusRank(p.Ranks)
		out[i] = p
	}
	return out
}

// ConsensusRank is the arithmetic mean of the finite values in ranks.
func ConsensusRank(ranks map[string]float64) float64 {
	var sum float64
	n := 0
	for _, r := range ranks {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		sum += r
		n++
	}
	if n == 0 {
		return math.Inf(1)
	}
	return sum / float64(n)
}
