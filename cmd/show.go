package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/report"
)

var (
	showFormat  string
	showLimit   int
	showColumns bool
)

var showCmd = &cobra.Command{
	Use:   "show <snapshot-id>",
	Short: "Show a saved table snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showFormat, "format", "table", "output format: table, json or csv")
	showCmd.Flags().IntVar(&showLimit, "limit", 0, "print at most N rows (0 = all)")
	showCmd.Flags().BoolVar(&showColumns, "columns", false, "list the snapshot's columns instead of its rows")
}

func parseSnapshotID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid snapshot id %q", arg)
	}
	return id, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseSnapshotID(args[0])
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cols, players, err := db.LoadSnapshot(id)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if showColumns {
		report.PrintColumns(cmd.OutOrStdout(), cols)
		return nil
	}
	return printTable(cmd.OutOrStdout(), players, cols, showFormat, showLimit)
}
