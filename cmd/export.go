package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/report"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <snapshot-id>",
	Short: "Export a saved snapshot as CSV",
	Long: `Write a saved snapshot as CSV: a header row of column labels, then one row
per player. The snake rank is rounded to one decimal and left empty for
players without a consensus.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
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
	if exportOut == "" {
		return report.WriteCSV(cmd.OutOrStdout(), players, cols)
	}
	if err := writeCSVFile(exportOut, players, cols); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", len(players), exportOut)
	return nil
}
