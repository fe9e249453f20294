package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/report"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the snapshot database",
	Long: `Run an arbitrary SQL query against the snapshot database and print results as a table.

Schema overview:
  snapshots(id, label, created_at, player_count, source_count)
  columns(snapshot_id, position, key, label, kind)       kind: fixed | source | computed
  players(snapshot_id, player_id, name, position, team, bye, snake_rank, ai_tier, faab_rec)
  player_ranks(snapshot_id, player_id, source, rank)

Note: snake_rank is NULL for players without a consensus rank. Example:
  SELECT p.name, r.source, r.rank FROM players p
  JOIN player_ranks r USING (snapshot_id, player_id)
  WHERE p.snapshot_id = 1 ORDER BY p.snake_rank LIMIT 20`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return nil
	}
	report.PrintRaw(w, cols, rows)
	fmt.Fprintf(w, "\n(%d rows)\n", len(rows))
	return nil
}
