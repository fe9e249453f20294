package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/report"
)

var (
	rosterPosition string
	rosterTeam     string
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Inspect the reference roster used to canonicalize names",
}

var rosterSearchCmd = &cobra.Command{
	Use:   "search [name]",
	Short: "Search reference players by name",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRosterSearch,
}

var rosterByesCmd = &cobra.Command{
	Use:   "byes",
	Short: "List bye weeks by team",
	Args:  cobra.NoArgs,
	RunE:  runRosterByes,
}

func init() {
	rosterSearchCmd.Flags().StringVar(&rosterPosition, "position", "", "only this position")
	rosterSearchCmd.Flags().StringVar(&rosterTeam, "team", "", "only this team code")
	rosterCmd.AddCommand(rosterSearchCmd, rosterByesCmd)
}

func runRosterSearch(cmd *cobra.Command, args []string) error {
	idx, err := loadRoster()
	if err != nil {
		return err
	}
	q := ""
	if len(args) == 1 {
		q = args[0]
	}
	matches := idx.Search(q)
	filtered := matches[:0]
	for _, p := range matches {
		if rosterPosition != "" && !strings.EqualFold(p.Position, rosterPosition) {
			continue
		}
		if rosterTeam != "" && !strings.EqualFold(p.Team, rosterTeam) {
			continue
		}
		filtered = append(filtered, p)
	}
	if len(filtered) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching players.")
		return nil
	}
	report.PrintRoster(cmd.OutOrStdout(), filtered, idx.ByeWeeks())
	return nil
}

func runRosterByes(cmd *cobra.Command, args []string) error {
	idx, err := loadRoster()
	if err != nil {
		return err
	}
	byes := idx.ByeWeeks()
	teams := make([]string, 0, len(byes))
	for t := range byes {
		teams = append(teams, t)
	}
	sort.Slice(teams, func(i, j int) bool {
		if byes[teams[i]] != byes[teams[j]] {
			return byes[teams[i]] < byes[teams[j]]
		}
		return teams[i] < teams[j]
	})
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-5s  %s\n", "WEEK", "TEAMS")
	for i := 0; i < len(teams); {
		week := byes[teams[i]]
		j := i
		for j < len(teams) && byes[teams[j]] == week {
			j++
		}
		fmt.Fprintf(w, "%-5d  %s\n", week, strings.Join(teams[i:j], ", "))
		i = j
	}
	return nil
}
