package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/oracle"
	"github.com/pable/go-playcall/internal/report"
	"github.com/pable/go-playcall/internal/session"
)

var (
	analyzeFormat string
	analyzeOut    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "AI analysis of a consolidated table (requires ANTHROPIC_API_KEY)",
	Long: `Run AI analysis over a table exported with 'playcall merge --csv-out' or
'playcall export', or over free-form trade and roster descriptions.`,
}

var analyzeTiersCmd = &cobra.Command{
	Use:   "tiers <table.csv>",
	Short: "Group players into draft tiers and add an AI Tier column",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeTiers,
}

var analyzeFAABCmd = &cobra.Command{
	Use:   "faab <table.csv>",
	Short: "Recommend FAAB bids for waiver-range players",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeFAAB,
}

var analyzeSleepersCmd = &cobra.Command{
	Use:   "sleepers <table.csv>",
	Short: "Identify undervalued players in the table",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeSleepers,
}

var analyzeBustsCmd = &cobra.Command{
	Use:   "busts <table.csv>",
	Short: "Identify overvalued players in the table",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeBusts,
}

var analyzeChatCmd = &cobra.Command{
	Use:   "chat <table.csv> <question>",
	Short: "Ask a question about a table",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnalyzeChat,
}

var analyzeTradeCmd = &cobra.Command{
	Use:   "trade <description|->",
	Short: "Grade a proposed trade",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyzeTrade,
}

var analyzeRosterCmd = &cobra.Command{
	Use:   "roster <description|->",
	Short: "Review a roster and suggest improvements",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyzeRoster,
}

func init() {
	for _, c := range []*cobra.Command{analyzeTiersCmd, analyzeFAABCmd} {
		c.Flags().StringVar(&analyzeFormat, "format", "table", "output format: table, json or csv")
		c.Flags().StringVar(&analyzeOut, "csv-out", "", "also write the annotated table as CSV")
	}
	analyzeCmd.AddCommand(analyzeTiersCmd, analyzeFAABCmd, analyzeSleepersCmd, analyzeBustsCmd,
		analyzeChatCmd, analyzeTradeCmd, analyzeRosterCmd)
}

// loadTable builds a session from a CSV export and returns it with the
// analysis oracle.
func loadTable(path string) (*session.Session, *oracle.Claude, error) {
	sess, claude, err := newSession(true)
	if err != nil {
		return nil, nil, err
	}
	if _, err := loadCSV(sess, path); err != nil {
		return nil, nil, err
	}
	if sess.Len() == 0 {
		return nil, nil, fmt.Errorf("%s: no players", path)
	}
	return sess, claude, nil
}

// applyTiers asks the analyst for tiers over every ranked player.
func applyTiers(ctx context.Context, sess *session.Session, analyst oracle.Analyst) error {
	entries := sess.AnalysisInput(0, 0)
	if len(entries) == 0 {
		return errors.New("no ranked players to tier")
	}
	tiers, err := analyst.Tiers(ctx, entries)
	if err != nil {
		return fmt.Errorf("generate tiers: %w", err)
	}
	matched := sess.ApplyTiers(tiers)
	log.WithField("matched", matched).Info("applied AI tiers")
	return nil
}

// applyFAAB asks the analyst for bids on players ranked past the
// configured threshold.
func applyFAAB(ctx context.Context, sess *session.Session, analyst oracle.Analyst) error {
	entries := sess.AnalysisInput(cfg.Analysis.FAABThreshold, 0)
	if len(entries) == 0 {
		return fmt.Errorf("no players ranked past %g to bid on", cfg.Analysis.FAABThreshold)
	}
	bids, err := analyst.FAABBids(ctx, entries)
	if err != nil {
		return fmt.Errorf("generate FAAB bids: %w", err)
	}
	matched := sess.ApplyFAAB(bids)
	log.WithField("matched", matched).Info("applied FAAB bids")
	return nil
}

func runAnalyzeTiers(cmd *cobra.Command, args []string) error {
	return runAnnotate(cmd, args[0], applyTiers)
}

func runAnalyzeFAAB(cmd *cobra.Command, args []string) error {
	return runAnnotate(cmd, args[0], applyFAAB)
}

func runAnnotate(cmd *cobra.Command, path string, apply func(context.Context, *session.Session, oracle.Analyst) error) error {
	sess, claude, err := loadTable(path)
	if err != nil {
		return err
	}
	if err := apply(cmd.Context(), sess, claude); err != nil {
		return err
	}
	snap := sess.Snapshot()
	if analyzeOut != "" {
		if err := writeCSVFile(analyzeOut, snap.Players, snap.Columns); err != nil {
			return err
		}
	}
	return printTable(cmd.OutOrStdout(), snap.Players, snap.Columns, analyzeFormat, 0)
}

func runAnalyzeSleepers(cmd *cobra.Command, args []string) error {
	sess, claude, err := loadTable(args[0])
	if err != nil {
		return err
	}
	text, err := claude.Sleepers(cmd.Context(), sess.AnalysisInput(0, cfg.Analysis.SearchLimit))
	if err != nil {
		return fmt.Errorf("find sleepers: %w", err)
	}
	printAnalysis(cmd.OutOrStdout(), "Sleepers", text)
	return nil
}

func runAnalyzeBusts(cmd *cobra.Command, args []string) error {
	sess, claude, err := loadTable(args[0])
	if err != nil {
		return err
	}
	text, err := claude.Busts(cmd.Context(), sess.AnalysisInput(0, cfg.Analysis.SearchLimit))
	if err != nil {
		return fmt.Errorf("find busts: %w", err)
	}
	printAnalysis(cmd.OutOrStdout(), "Busts", text)
	return nil
}

func runAnalyzeChat(cmd *cobra.Command, args []string) error {
	sess, claude, err := loadTable(args[0])
	if err != nil {
		return err
	}
	snap := sess.Snapshot()
	history := []oracle.ChatMessage{{Role: "user", Content: args[1]}}
	text, err := claude.Chat(cmd.Context(), history, report.PipeTable(snap.Players, snap.Columns, cfg.Analysis.ChatRows))
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	printAnalysis(cmd.OutOrStdout(), "Assistant", text)
	return nil
}

func runAnalyzeTrade(cmd *cobra.Command, args []string) error {
	text, err := argsOrStdin(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	claude, err := newClaude()
	if err != nil {
		return err
	}
	res, err := claude.AnalyzeTrade(cmd.Context(), text)
	if err != nil {
		return fmt.Errorf("analyze trade: %w", err)
	}
	printAnalysis(cmd.OutOrStdout(), "Trade grade: "+res.Grade, res.Reasoning)
	return nil
}

func runAnalyzeRoster(cmd *cobra.Command, args []string) error {
	text, err := argsOrStdin(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	claude, err := newClaude()
	if err != nil {
		return err
	}
	advice, err := claude.RosterAdvice(cmd.Context(), text)
	if err != nil {
		return fmt.Errorf("roster advice: %w", err)
	}
	printAnalysis(cmd.OutOrStdout(), "Roster advice", advice)
	return nil
}

// argsOrStdin joins args, or reads stdin when the only arg is "-".
func argsOrStdin(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		args = []string{string(b)}
	}
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return "", errors.New("empty description")
	}
	return text, nil
}

func printAnalysis(w io.Writer, title, body string) {
	fmt.Fprintf(w, "\n─── %s ", title)
	if n := 50 - len(title); n > 0 {
		fmt.Fprint(w, strings.Repeat("─", n))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, report.Markdown(body, 80, !color.NoColor))
	fmt.Fprintln(w, strings.Repeat("─", 56))
}
