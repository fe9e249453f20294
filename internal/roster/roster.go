// Package roster holds the bundled reference roster: canonical player names,
// positions and teams, plus the team bye-week table.
package roster

import (
	"bufio"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/pable/go-playcall/internal/model"
)

//go:embed data/players.csv
var playersCSV string

//go:embed data/byes.txt
var byesTXT string

// byeLine matches "Week 5: Pittsburgh Steelers, Chicago Bears".
var byeLine = regexp.MustCompile(`^Week (\d+): (.+)$`)

type lastNameKey struct {
	lastName string
	position string
}

// Index is the read-only lookup over the reference roster. Safe for
// concurrent use once built.
type Index struct {
	players    []model.ReferencePlayer
	byName     map[string]model.ReferencePlayer
	byLastName map[lastNameKey]model.ReferencePlayer
	byes       model.ByeWeekTable
}

var (
	defaultOnce  sync.Once
	defaultIndex *Index
	defaultErr   error
)

// Default returns the index built from the embedded roster files.
func Default() (*Index, error) {
	defaultOnce.Do(func() {
		defaultIndex, defaultErr = Load(strings.NewReader(playersCSV), strings.NewReader(byesTXT))
	})
	return defaultIndex, defaultErr
}

// Load builds an index from a "Player,Position,Team" CSV (header row first)
// and a bye-week listing. byes may be nil.
func Load(players, byes io.Reader) (*Index, error) {
	idx := &Index{
		byName:     make(map[string]model.ReferencePlayer),
		byLastName: make(map[lastNameKey]model.ReferencePlayer),
		byes:       make(model.ByeWeekTable),
	}

	r := csv.NewReader(players)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("read roster: empty file")
	}
	for _, row := range rows[1:] {
		if len(row) < 3 {
			continue
		}
		p := model.ReferencePlayer{
			Name:     strings.TrimSpace(row[0]),
			Position: strings.TrimSpace(row[1]),
			Team:     strings.TrimSpace(row[2]),
		}
		if p.Name == "" || p.Position == "" || p.Team == "" {
			continue
		}
		idx.add(p)
	}

	if byes != nil {
		if err := idx.loadByes(byes); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// add registers p. Later duplicates overwrite the exact-name entry, but the
// last-name entry keeps whichever player came first in roster order.
func (idx *Index) add(p model.ReferencePlayer) {
	idx.players = append(idx.players, p)
	idx.byName[strings.ToLower(p.Name)] = p
	if ln := LastName(p.Name); ln != "" {
		k := lastNameKey{ln, p.Position}
		if _, taken := idx.byLastName[k]; !taken {
			idx.byLastName[k] = p
		}
	}
}

// loadByes maps each listed full team name to the team code of its DST row.
// Teams without a DST row in the roster are skipped.
func (idx *Index) loadByes(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m := byeLine.FindStringSubmatch(strings.TrimSpace(sc.Text()))
		if m == nil {
			continue
		}
		week, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		for _, teamName := range strings.Split(m[2], ",") {
			teamName = strings.TrimSpace(teamName)
			if code, ok := idx.defenseCode(teamName); ok {
				idx.byes[code] = week
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read bye weeks: %w", err)
	}
	return nil
}

func (idx *Index) defenseCode(teamName string) (string, bool) {
	if teamName == "" {
		return "", false
	}
	for _, p := range idx.players {
		if p.Position == "DST" && strings.HasPrefix(p.Name, teamName) {
			return p.Team, true
		}
	}
	return "", false
}

// Lookup resolves a player by exact case-insensitive name, falling back to
// last name + position.
func (idx *Index) Lookup(name, position string) (model.ReferencePlayer, bool) {
	if name == "" {
		return model.ReferencePlayer{}, false
	}
	if p, ok := idx.byName[strings.ToLower(name)]; ok {
		return p, true
	}
	ln := LastName(name)
	if ln == "" {
		return model.ReferencePlayer{}, false
	}
	p, ok := idx.byLastName[lastNameKey{ln, position}]
	return p, ok
}

// ByeWeek returns the bye week for a team code.
func (idx *Index) ByeWeek(team string) (int, bool) {
	w, ok := idx.byes[team]
	return w, ok
}

// ByeWeeks returns a copy of the team → bye table.
func (idx *Index) ByeWeeks() model.ByeWeekTable {
	out := make(model.ByeWeekTable, len(idx.byes))
	for k, v := range idx.byes {
		out[k] = v
	}
	return out
}

// Len returns the number of roster rows loaded.
func (idx *Index) Len() int { return len(idx.players) }

// Search returns roster players whose name contains q (case-insensitive),
// in roster order.
func (idx *Index) Search(q string) []model.ReferencePlayer {
	q = strings.ToLower(strings.TrimSpace(q))
	var out []model.ReferencePlayer
	for _, p := range idx.players {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	return out
}
