package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <snapshot-id>",
	Short: "Delete a saved snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseSnapshotID(args[0])
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteSnapshot(id); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted snapshot %d\n", id)
	return nil
}
