package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved table snapshots",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	snaps, err := db.ListSnapshots()
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	w := cmd.OutOrStdout()
	if len(snaps) == 0 {
		fmt.Fprintln(w, "No snapshots saved yet. Run 'playcall merge ... --save <label>' to add one.")
		return nil
	}

	fmt.Fprintf(w, "%5s  %-24s  %-20s  %7s  %7s\n", "ID", "LABEL", "CREATED", "PLAYERS", "SOURCES")
	fmt.Fprintf(w, "%5s  %-24s  %-20s  %7s  %7s\n", "─────", "────────────────────────", "────────────────────", "───────", "───────")
	for _, s := range snaps {
		fmt.Fprintf(w, "%5d  %-24s  %-20s  %7d  %7d\n", s.ID, truncate(s.Label, 24), s.CreatedAt, s.PlayerCount, s.SourceCount)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
