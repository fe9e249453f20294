// Package normalize validates raw oracle records and canonicalizes them
// against the reference roster.
package normalize

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pable/go-playcall/internal/logging"
	"github.com/pable/go-playcall/internal/model"
)

// Roster is the subset of the roster index the normalizer needs.
type Roster interface {
	Lookup(name, position string) (model.ReferencePlayer, bool)
	ByeWeek(team string) (int, bool)
}

// Normalizer turns RawRecords into NormalizedRecords.
type Normalizer struct {
	roster Roster
	log    logrus.FieldLogger
}

// New returns a Normalizer backed by roster. A nil log discards skip notices.
func New(roster Roster, log logrus.FieldLogger) *Normalizer {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Normalizer{roster: roster, log: logging.WithComponent(log, "normalize")}
}

// Normalize validates raw and resolves it against the roster. ok is false
// when the record is invalid and was dropped.
func (n *Normalizer) Normalize(raw model.RawRecord) (model.NormalizedRecord, bool) {
	name := strings.TrimSpace(raw.Name)
	position := strings.TrimSpace(raw.Position)
	team := strings.TrimSpace(raw.Team)

	rank, numeric := raw.RankValue()
	reason := ""
	switch {
	case name == "":
		reason = "empty name"
	case !numeric:
		reason = "non-numeric rank"
	case position == "":
		reason = "empty position"
	case team == "":
		reason = "empty team"
	}
	if reason != "" {
		n.log.WithFields(logrus.Fields{"name": raw.Name, "reason": reason}).Debug("skipping record")
		return model.NormalizedRecord{}, false
	}

	rec := model.NormalizedRecord{Rank: rank}
	if ref, ok := n.roster.Lookup(name, position); ok {
		rec.Name, rec.Position, rec.Team = ref.Name, ref.Position, ref.Team
	} else {
		rec.Name, rec.Position, rec.Team = name, position, strings.ToUpper(team)
	}
	if bye, ok := n.roster.ByeWeek(rec.Team); ok {
		rec.Bye = bye
	}
	return rec, true
}

// NormalizeAll normalizes raws in order, dropping invalid records.
func (n *Normalizer) NormalizeAll(raws []model.RawRecord) []model.NormalizedRecord {
	out := make([]model.NormalizedRecord, 0, len(raws))
	for _, raw := range raws {
		if rec, ok := n.Normalize(raw); ok {
			out = append(out, rec)
		}
	}
	if dropped := len(raws) - len(out); dropped > 0 {
		n.log.WithField("dropped", dropped).Debug("normalized batch")
	}
	return out
}
