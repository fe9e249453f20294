package model

import (
	"encoding/json"
	"math"
	"strings"
)

// ---- Reference data ----

// ReferencePlayer is one row of the bundled roster. Never mutated after load.
type ReferencePlayer struct {
	Name     string
	Position string
	Team     string
}

// ByeWeekTable maps a team code to its bye week (1–18).
type ByeWeekTable map[string]int

// ---- Records emitted by the extraction oracle ----

// RawRecord is one candidate row as returned by the extraction oracle.
// Rank is left untyped so a non-numeric rank can be rejected by the normalizer
// instead of failing the whole response decode.
type RawRecord struct {
	Rank     any    `json:"rank"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Team     string `json:"team"`
}

// RankValue returns the record's rank as a float64 and whether it was numeric.
func (r RawRecord) RankValue() (float64, bool) {
	var v float64
	switch n := r.Rank.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// NormalizedRecord is a RawRecord after roster canonicalization.
// Bye is 0 when the team has no known bye week.
type NormalizedRecord struct {
	Rank     float64
	Name     string
	Position string
	Team     string
	Bye      int
}

// ---- Aggregated session state ----

// AggregatedPlayer is the merged identity record for one player across sources.
type AggregatedPlayer struct {
	Name      string
	Position  string
	Team      string
	Bye       int                // 0 = unknown
	Ranks     map[string]float64 // source column key → rank reported by that source
	SnakeRank float64            // mean of Ranks; +Inf when Ranks is empty
	AITier    *float64
	FAABRec   *float64
}

// Key returns the identity key used for exact matching.
func (p *AggregatedPlayer) Key() string {
	return strings.ToLower(p.Name)
}

// HasConsensus reports whether the player has at least one finite rank.
func (p *AggregatedPlayer) HasConsensus() bool {
	return !math.IsInf(p.SnakeRank, 1) && !math.IsNaN(p.SnakeRank)
}

// Clone returns a deep copy; the Ranks map and computed fields are not shared.
func (p AggregatedPlayer) Clone() AggregatedPlayer {
	out := p
	out.Ranks = make(map[string]float64, len(p.Ranks))
	for k, v := range p.Ranks {
		out.Ranks[k] = v
	}
	if p.AITier != nil {
		v := *p.AITier
		out.AITier = &v
	}
	if p.FAABRec != nil {
		v := *p.FAABRec
		out.FAABRec = &v
	}
	return out
}

// ClonePlayers deep-copies a player slice.
func ClonePlayers(players []AggregatedPlayer) []AggregatedPlayer {
	out := make([]AggregatedPlayer, len(players))
	for i, p := range players {
		out[i] = p.Clone()
	}
	return out
}

// ---- Table layout ----

// Fixed and computed column keys. Any other key is a source rank column.
const (
	KeySnakeRank = "snakeRank"
	KeyName      = "name"
	KeyPosition  = "position"
	KeyTeam      = "team"
	KeyBye       = "bye"
	KeyAITier    = "aiTier"
	KeyFAABRec   = "faabRec"
)

// IsPlayerField reports whether key names a player field rather than a source rank.
func IsPlayerField(key string) bool {
	switch key {
	case KeySnakeRank, KeyName, KeyPosition, KeyTeam, KeyBye, KeyAITier, KeyFAABRec:
		return true
	}
	return false
}

// Column is one displayed/exported column.
type Column struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Sortable bool   `json:"sortable"`
}

// SortDirection is the order applied to the active sort column.
type SortDirection string

const (
	Ascending  SortDirection = "ascending"
	Descending SortDirection = "descending"
)

// SortConfig is the active sort criterion.
type SortConfig struct {
	Key       string        `json:"key"`
	Direction SortDirection `json:"direction"`
}

// Value returns the player's value for a column key: float64, string, or nil
// when the player has no value for it.
func (p *AggregatedPlayer) Value(key string) any {
	switch key {
	case KeySnakeRank:
		return p.SnakeRank
	case KeyName:
		return p.Name
	case KeyPosition:
		return p.Position
	case KeyTeam:
		return p.Team
	case KeyBye:
		if p.Bye == 0 {
			return nil
		}
		return float64(p.Bye)
	case KeyAITier:
		if p.AITier == nil {
			return nil
		}
		return *p.AITier
	case KeyFAABRec:
		if p.FAABRec == nil {
			return nil
		}
		return *p.FAABRec
	}
	if v, ok := p.Ranks[key]; ok {
		return v
	}
	return nil
}

// AnalysisEntry is the read-only view handed to downstream analysis oracles.
type AnalysisEntry struct {
	Name      string  `json:"name"`
	SnakeRank float64 `json:"rank"`
	Position  string  `json:"position"`
}

// SnapshotSummary describes one saved table snapshot.
type SnapshotSummary struct {
	ID          int64
	Label       string
	CreatedAt   string // RFC 3339, UTC
	PlayerCount int
	SourceCount int
}
