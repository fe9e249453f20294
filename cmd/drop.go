package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dropForce bool

// dropCmd deletes the snapshot database file.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the snapshot database",
	Long:  "Permanently delete the SQLite snapshot database. Every saved snapshot will be lost.",
	Args:  cobra.NoArgs,
	RunE:  runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
}

func runDrop(cmd *cobra.Command, args []string) error {
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", cfg.DB)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := os.Remove(cfg.DB); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
			return removeSidecars(cfg.DB)
		}
		return fmt.Errorf("remove database: %w", err)
	}
	if err := removeSidecars(cfg.DB); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", cfg.DB)
	return nil
}

// removeSidecars deletes the SQLite write-ahead log and shared-memory files.
// Missing files are fine.
func removeSidecars(db string) error {
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(db + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove database %s file: %w", suffix, err)
		}
	}
	return nil
}
