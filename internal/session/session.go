// Package session owns one consolidation session: the merged player set, the
// column layout, the display sort and filters, and any extraction waiting on
// user clarification. Every mutation is serialized; readers get snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pable/go-playcall/internal/aggregator"
	"github.com/pable/go-playcall/internal/columns"
	"github.com/pable/go-playcall/internal/logging"
	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/normalize"
	"github.com/pable/go-playcall/internal/oracle"
)

var (
	ErrNoPendingClarification = errors.New("no extraction is waiting for clarification")
	ErrUnknownPosition        = errors.New("unknown position filter")
	ErrSessionReset           = errors.New("session was reset while the extraction was running")
)

// Status is the result kind of an ingestion.
type Status int

const (
	Merged Status = iota
	NeedsClarification
)

func (s Status) String() string {
	if s == NeedsClarification {
		return "clarification_needed"
	}
	return "merged"
}

// Input is one piece of user-supplied rankings content. Label, when set,
// names the source column.
type Input struct {
	Text      string
	Image     []byte
	ImageMIME string
	Label     string
}

// Outcome describes a finished ingestion.
type Outcome struct {
	Status      Status
	IngestionID string
	Source      string
	Accepted    int // records that survived normalization
	Dropped     int
	NewPlayers  int
	Questions   map[string]string
}

// Snapshot is a consistent, display-ready copy of the session.
type Snapshot struct {
	Players   []model.AggregatedPlayer // sorted and filtered
	Columns   []model.Column
	Sort      model.SortConfig
	Filters   []string
	Total     int // players before filtering
	Positions []string
	Pending   map[string]string // open clarification questions, if any
}

type pendingIngest struct {
	input     Input
	questions map[string]string
}

// Session is safe for concurrent use.
type Session struct {
	extractor  oracle.Extractor
	normalizer *normalize.Normalizer
	log        logrus.FieldLogger

	mu       sync.Mutex
	players  []model.AggregatedPlayer
	registry *columns.Registry
	sort     model.SortConfig
	filters  []string
	pending  *pendingIngest
	gen      uint64 // bumped by Reset; extractions started earlier are discarded
}

// New returns an empty session. extractor may be nil when only
// IngestRecords is used.
func New(extractor oracle.Extractor, normalizer *normalize.Normalizer, log logrus.FieldLogger) *Session {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Session{
		extractor:  extractor,
		normalizer: normalizer,
		log:        logging.WithComponent(log, "session"),
		registry:   columns.New(),
		sort:       defaultSort(),
	}
}

func defaultSort() model.SortConfig {
	return model.SortConfig{Key: model.KeySnakeRank, Direction: model.Ascending}
}

// ---- Ingestion ----

// Ingest extracts rankings from in and merges them. When the oracle needs
// more context the input is parked and the outcome lists the questions;
// call Answer to resume. On any error the session is left untouched.
func (s *Session) Ingest(ctx context.Context, in Input) (Outcome, error) {
	return s.extract(ctx, in, nil, "")
}

// Answer re-runs the parked ingestion with the user's clarification.
func (s *Session) Answer(ctx context.Context, clarification string) (Outcome, error) {
	s.mu.Lock()
	p := s.pending
	s.mu.Unlock()
	if p == nil {
		return Outcome{}, ErrNoPendingClarification
	}
	if strings.TrimSpace(clarification) == "" {
		return Outcome{}, errors.New("clarification cannot be empty")
	}
	return s.extract(ctx, p.input, p, clarification)
}

// extract runs the oracle outside the lock. answering is the parked
// ingestion being resumed, nil for a fresh one; it is cleared only if it is
// still the one parked when the oracle returns.
func (s *Session) extract(ctx context.Context, in Input, answering *pendingIngest, clarification string) (Outcome, error) {
	if s.extractor == nil {
		return Outcome{}, errors.New("no extraction oracle configured")
	}
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	id := uuid.NewString()
	log := s.log.WithField("ingestion_id", id)
	log.WithFields(logrus.Fields{
		"text_bytes":    len(in.Text),
		"image_bytes":   len(in.Image),
		"clarification": clarification != "",
	}).Info("extracting rankings")

	ex, err := s.extractor.Extract(ctx, oracle.Request{
		Text:          in.Text,
		Image:         in.Image,
		ImageMIME:     in.ImageMIME,
		Clarification: clarification,
	})
	if err == nil {
		err = ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		log.Info("discarding extraction started before reset")
		return Outcome{}, ErrSessionReset
	}
	stillParked := answering != nil && s.pending == answering
	if err != nil {
		if stillParked && ctx.Err() == nil {
			s.pending = nil
		}
		log.WithError(err).Warn("extraction failed")
		return Outcome{}, err
	}
	if ex.Ambiguous() {
		if answering == nil || stillParked {
			s.pending = &pendingIngest{input: in, questions: ex.Questions}
		}
		log.WithField("questions", len(ex.Questions)).Info("extraction needs clarification")
		return Outcome{Status: NeedsClarification, IngestionID: id, Questions: ex.Questions}, nil
	}
	if stillParked {
		s.pending = nil
	}

	label := strings.TrimSpace(in.Label)
	if label == "" {
		label = ex.Source
	}
	return s.commitLocked(id, label, ex.Players, clarification != "")
}

// IngestRecords merges already-extracted records under source, bypassing
// the oracle. An empty source gets the next "Source N" label.
func (s *Session) IngestRecords(source string, raws []model.RawRecord) (Outcome, error) {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(id, strings.TrimSpace(source), raws, false)
}

// commitLocked runs normalize → merge → recompute → register and publishes
// the result. s.mu must be held.
func (s *Session) commitLocked(id, source string, raws []model.RawRecord, clarified bool) (Outcome, error) {
	batch := s.normalizer.NormalizeAll(raws)
	if len(batch) == 0 {
		if clarified {
			return Outcome{}, oracle.ErrStillEmpty
		}
		return Outcome{}, oracle.ErrEmptyResult
	}

	if source == "" || columns.IsReserved(source) {
		source = s.registry.NextSourceLabel()
	}

	before := len(s.players)
	merged := aggregator.Recompute(aggregator.Merge(s.players, batch, source))
	s.registry.AddSourceColumn(source)
	s.players = merged

	out := Outcome{
		Status:      Merged,
		IngestionID: id,
		Source:      source,
		Accepted:    len(batch),
		Dropped:     len(raws) - len(batch),
		NewPlayers:  len(merged) - before,
	}
	logging.WithIngestion(s.log, id, source).WithFields(logrus.Fields{
		"accepted":    out.Accepted,
		"dropped":     out.Dropped,
		"new_players": out.NewPlayers,
		"players":     len(merged),
	}).Info("merged source")
	return out, nil
}

// ---- Layout ----

// Rename renames a source column and moves every player's rank for it.
func (s *Session) Rename(oldKey, newLabel string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newKey, err := s.registry.Rename(oldKey, newLabel)
	if err != nil {
		return "", err
	}
	if newKey == oldKey {
		return newKey, nil
	}

	players := make([]model.AggregatedPlayer, len(s.players))
	for i, p := range s.players {
		if v, ok := p.Ranks[oldKey]; ok {
			p = p.Clone()
			delete(p.Ranks, oldKey)
			p.Ranks[newKey] = v
		}
		players[i] = p
	}
	s.players = aggregator.Recompute(players)
	if s.sort.Key == oldKey {
		s.sort.Key = newKey
	}
	s.log.WithFields(logrus.Fields{"from": oldKey, "to": newKey}).Info("renamed column")
	return newKey, nil
}

// SetSort sorts by key, toggling to descending when key is already the
// ascending sort column.
func (s *Session) SetSort(key string) (model.SortConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.Has(key) {
		return s.sort, fmt.Errorf("%w: %q", columns.ErrUnknownColumn, key)
	}
	dir := model.Ascending
	if s.sort.Key == key && s.sort.Direction == model.Ascending {
		dir = model.Descending
	}
	s.sort = model.SortConfig{Key: key, Direction: dir}
	return s.sort, nil
}

// SortBy sets the sort column and direction explicitly.
func (s *Session) SortBy(key string, dir model.SortDirection) error {
	if dir != model.Ascending && dir != model.Descending {
		return fmt.Errorf("unknown sort direction %q", dir)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registry.Has(key) {
		return fmt.Errorf("%w: %q", columns.ErrUnknownColumn, key)
	}
	s.sort = model.SortConfig{Key: key, Direction: dir}
	return nil
}

// ToggleFilter adds or removes a position filter and returns the active set.
func (s *Session) ToggleFilter(pos string) ([]string, error) {
	valid := false
	for _, p := range aggregator.FilterOrder {
		if strings.EqualFold(p, pos) {
			pos, valid = p, true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPosition, pos)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.filters {
		if f == pos {
			s.filters = append(s.filters[:i:i], s.filters[i+1:]...)
			return append([]string(nil), s.filters...), nil
		}
	}
	s.filters = append(s.filters, pos)
	return append([]string(nil), s.filters...), nil
}

// AvailablePositions lists the position filters that match loaded players.
func (s *Session) AvailablePositions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return aggregator.AvailablePositions(s.players)
}

// Reset clears every player, source column, sort, filter and pending
// clarification.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = nil
	s.registry.Reset()
	s.sort = defaultSort()
	s.filters = nil
	s.pending = nil
	s.gen++
	s.log.Info("session reset")
}

// ---- Reads ----

// Snapshot returns a deep copy of the session, sorted and filtered for display.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	players := model.ClonePlayers(s.players)
	aggregator.Sort(players, s.sort)
	snap := Snapshot{
		Players:   aggregator.Filter(players, s.filters),
		Columns:   s.registry.Columns(),
		Sort:      s.sort,
		Filters:   append([]string(nil), s.filters...),
		Total:     len(s.players),
		Positions: aggregator.AvailablePositions(s.players),
	}
	if s.pending != nil {
		snap.Pending = make(map[string]string, len(s.pending.questions))
		for k, v := range s.pending.questions {
			snap.Pending[k] = v
		}
	}
	return snap
}

// Len returns the number of merged players.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// ---- Analysis boundary ----

// AnalysisInput exports players with a consensus rank above threshold, best
// consensus first. limit caps the result; 0 means no cap.
func (s *Session) AnalysisInput(threshold float64, limit int) []model.AnalysisEntry {
	s.mu.Lock()
	players := model.ClonePlayers(s.players)
	s.mu.Unlock()

	sort.SliceStable(players, func(i, j int) bool {
		return players[i].SnakeRank < players[j].SnakeRank
	})
	var out []model.AnalysisEntry
	for _, p := range players {
		if !p.HasConsensus() || p.SnakeRank <= threshold {
			continue
		}
		out = append(out, model.AnalysisEntry{Name: p.Name, SnakeRank: p.SnakeRank, Position: p.Position})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// ApplyTiers attaches AI tiers by exact player name and returns how many
// players matched.
func (s *Session) ApplyTiers(tiers map[string]float64) int {
	return s.applyComputed(model.KeyAITier, columns.LabelAITier, tiers, func(p *model.AggregatedPlayer, v float64) {
		p.AITier = &v
	})
}

// ApplyFAAB attaches FAAB bid recommendations by exact player name and
// returns how many players matched.
func (s *Session) ApplyFAAB(bids map[string]float64) int {
	return s.applyComputed(model.KeyFAABRec, columns.LabelFAABRec, bids, func(p *model.AggregatedPlayer, v float64) {
		p.FAABRec = &v
	})
}

func (s *Session) applyComputed(key, label string, values map[string]float64, set func(*model.AggregatedPlayer, float64)) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	players := make([]model.AggregatedPlayer, len(s.players))
	matched := 0
	for i, p := range s.players {
		if v, ok := values[p.Name]; ok {
			p = p.Clone()
			set(&p, v)
			matched++
		}
		players[i] = p
	}
	s.players = players
	s.registry.EnsureComputed(key, label)
	s.log.WithFields(logrus.Fields{"column": key, "returned": len(values), "matched": matched}).Info("applied analysis values")
	return matched
}

// ColumnKey resolves ref, either a column key or a displayed label
// (case-insensitive), to the column key.
func (s *Session) ColumnKey(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry.Has(ref) {
		return ref, true
	}
	for _, c := range s.registry.Columns() {
		if strings.EqualFold(c.Label, ref) {
			return c.Key, true
		}
	}
	return "", false
}
