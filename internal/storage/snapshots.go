package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/pable/go-playcall/internal/model"
)

// ErrSnapshotNotFound is returned when no snapshot has the requested id.
var ErrSnapshotNotFound = errors.New("snapshot not found")

func columnKind(key string) string {
	switch key {
	case model.KeyAITier, model.KeyFAABRec:
		return "computed"
	}
	if model.IsPlayerField(key) {
		return "fixed"
	}
	return "source"
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// SaveSnapshot stores players and their column layout under label in one
// transaction and returns the new snapshot id.
func (db *DB) SaveSnapshot(label string, players []model.AggregatedPlayer, cols []model.Column) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	sources := 0
	for _, c := range cols {
		if columnKind(c.Key) == "source" {
			sources++
		}
	}
	res, err := tx.Exec(`
		INSERT INTO snapshots(label, created_at, player_count, source_count)
		VALUES (?, ?, ?, ?)`,
		label, time.Now().UTC().Format(time.RFC3339), len(players), sources,
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	colStmt, err := tx.Prepare(`INSERT INTO columns(snapshot_id, position, key, label, kind) VALUES (?,?,?,?,?)`)
	if err != nil {
		return 0, err
	}
	defer colStmt.Close()
	for i, c := range cols {
		if _, err := colStmt.Exec(id, i, c.Key, c.Label, columnKind(c.Key)); err != nil {
			return 0, fmt.Errorf("insert column %q: %w", c.Key, err)
		}
	}

	playerStmt, err := tx.Prepare(`
		INSERT INTO players(snapshot_id, player_id, name, position, team, bye, snake_rank, ai_tier, faab_rec)
		VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, err
	}
	defer playerStmt.Close()
	rankStmt, err := tx.Prepare(`INSERT INTO player_ranks(snapshot_id, player_id, source, rank) VALUES (?,?,?,?)`)
	if err != nil {
		return 0, err
	}
	defer rankStmt.Close()

	for i, p := range players {
		var bye sql.NullInt64
		if p.Bye != 0 {
			bye = sql.NullInt64{Int64: int64(p.Bye), Valid: true}
		}
		var snake sql.NullFloat64
		if p.HasConsensus() {
			snake = sql.NullFloat64{Float64: p.SnakeRank, Valid: true}
		}
		if _, err := playerStmt.Exec(id, i, p.Name, p.Position, p.Team, bye, snake, nullFloat(p.AITier), nullFloat(p.FAABRec)); err != nil {
			return 0, fmt.Errorf("insert player %q: %w", p.Name, err)
		}
		for source, rank := range p.Ranks {
			if _, err := rankStmt.Exec(id, i, source, rank); err != nil {
				return 0, fmt.Errorf("insert rank %s/%q: %w", source, p.Name, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListSnapshots returns every snapshot, newest first.
func (db *DB) ListSnapshots() ([]model.SnapshotSummary, error) {
	rows, err := db.conn.Query(`
		SELECT id, label, created_at, player_count, source_count
		FROM snapshots ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SnapshotSummary
	for rows.Next() {
		var s model.SnapshotSummary
		if err := rows.Scan(&s.ID, &s.Label, &s.CreatedAt, &s.PlayerCount, &s.SourceCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LoadSnapshot reads a saved table back for display or export.
func (db *DB) LoadSnapshot(id int64) ([]model.Column, []model.AggregatedPlayer, error) {
	var exists int
	if err := db.conn.QueryRow(`SELECT COUNT(1) FROM snapshots WHERE id = ?`, id).Scan(&exists); err != nil {
		return nil, nil, err
	}
	if exists == 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrSnapshotNotFound, id)
	}

	colRows, err := db.conn.Query(`SELECT key, label FROM columns WHERE snapshot_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, nil, err
	}
	var cols []model.Column
	for colRows.Next() {
		c := model.Column{Sortable: true}
		if err := colRows.Scan(&c.Key, &c.Label); err != nil {
			colRows.Close()
			return nil, nil, err
		}
		cols = append(cols, c)
	}
	colRows.Close()
	if err := colRows.Err(); err != nil {
		return nil, nil, err
	}

	playerRows, err := db.conn.Query(`
		SELECT player_id, name, position, team, bye, snake_rank, ai_tier, faab_rec
		FROM players WHERE snapshot_id = ? ORDER BY player_id`, id)
	if err != nil {
		return nil, nil, err
	}
	var players []model.AggregatedPlayer
	index := make(map[int]int)
	for playerRows.Next() {
		var (
			pid               int
			p                 model.AggregatedPlayer
			bye               sql.NullInt64
			snake, tier, faab sql.NullFloat64
		)
		if err := playerRows.Scan(&pid, &p.Name, &p.Position, &p.Team, &bye, &snake, &tier, &faab); err != nil {
			playerRows.Close()
			return nil, nil, err
		}
		p.Bye = int(bye.Int64)
		p.SnakeRank = math.Inf(1)
		if snake.Valid {
			p.SnakeRank = snake.Float64
		}
		if tier.Valid {
			v := tier.Float64
			p.AITier = &v
		}
		if faab.Valid {
			v := faab.Float64
			p.FAABRec = &v
		}
		p.Ranks = make(map[string]float64)
		index[pid] = len(players)
		players = append(players, p)
	}
	playerRows.Close()
	if err := playerRows.Err(); err != nil {
		return nil, nil, err
	}

	rankRows, err := db.conn.Query(`SELECT player_id, source, rank FROM player_ranks WHERE snapshot_id = ?`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rankRows.Close()
	for rankRows.Next() {
		var (
			pid    int
			source string
			rank   float64
		)
		if err := rankRows.Scan(&pid, &source, &rank); err != nil {
			return nil, nil, err
		}
		if i, ok := index[pid]; ok {
			players[i].Ranks[source] = rank
		}
	}
	return cols, players, rankRows.Err()
}

// DeleteSnapshot removes a snapshot and everything stored under it.
func (db *DB) DeleteSnapshot(id int64) error {
	res, err := db.conn.Exec(`DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrSnapshotNotFound, id)
	}
	return nil
}
