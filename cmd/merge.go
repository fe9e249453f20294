package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/fetch"
	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/oracle"
	"github.com/pable/go-playcall/internal/report"
	"github.com/pable/go-playcall/internal/session"
)

var (
	mergeTexts   []string
	mergeFiles   []string
	mergeImages  []string
	mergeURLs    []string
	mergeJSON    []string
	mergeCSVIn   []string
	mergeLabels  []string
	mergeAnswer  string
	mergeSort    string
	mergeDesc    bool
	mergeFilters []string
	mergeLimit   int
	mergeFormat  string
	mergeOut     string
	mergeSave    string
	mergeTiers   bool
	mergeFAAB    bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge rankings from one or more inputs into a consolidated table",
	Long: `Merge rankings from pasted text, files, images, web pages, pre-extracted
JSON or earlier CSV exports. Inputs are ingested in the order text, file,
image, url, json, csv-in; --label names their source columns in that same
order. The merged table is printed and optionally written to CSV or saved
as a snapshot.`,
	Example: `  playcall merge --file espn.txt --file yahoo.txt --label ESPN --label Yahoo
  playcall merge --image ranks.png --csv-out merged.csv
  playcall merge --csv-in week1.csv --url https://example.com/ranks --save "week 2"`,
	Args: cobra.NoArgs,
	RunE: runMerge,
}

func init() {
	f := mergeCmd.Flags()
	f.StringArrayVar(&mergeTexts, "text", nil, "rankings text (repeatable; - reads stdin)")
	f.StringArrayVar(&mergeFiles, "file", nil, "text file containing rankings (repeatable)")
	f.StringArrayVar(&mergeImages, "image", nil, "screenshot of a rankings list (repeatable)")
	f.StringArrayVar(&mergeURLs, "url", nil, "web page to fetch rankings from (repeatable)")
	f.StringArrayVar(&mergeJSON, "json", nil, "pre-extracted JSON in {source, players} form (repeatable)")
	f.StringArrayVar(&mergeCSVIn, "csv-in", nil, "CSV previously written by playcall (repeatable)")
	f.StringArrayVar(&mergeLabels, "label", nil, "source column name for the nth input (repeatable)")
	f.StringVar(&mergeAnswer, "answer", "", "answer to use if the AI asks for clarification")
	f.StringVar(&mergeSort, "sort", "", "column label or key to sort by (default snake rank)")
	f.BoolVar(&mergeDesc, "desc", false, "sort descending")
	f.StringSliceVar(&mergeFilters, "position", nil, "only show these positions (QB,RB,WR,TE,Flex,K,DST)")
	f.IntVar(&mergeLimit, "limit", 0, "print at most N rows (0 = all)")
	f.StringVar(&mergeFormat, "format", "table", "output format: table, json or csv")
	f.StringVar(&mergeOut, "csv-out", "", "also write the table as CSV to this path")
	f.StringVar(&mergeSave, "save", "", "save the merged table as a snapshot with this label")
	f.BoolVar(&mergeTiers, "tiers", false, "add AI draft tiers")
	f.BoolVar(&mergeFAAB, "faab", false, "add AI FAAB bid recommendations")
}

// mergeInput is one queued ingestion.
type mergeInput struct {
	desc string
	in   session.Input
	json string // path for pre-extracted JSON
	csv  string // path for a CSV export
	url  string
}

func collectInputs(stdin io.Reader) ([]mergeInput, error) {
	var inputs []mergeInput
	for _, t := range mergeTexts {
		if t == "-" {
			b, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			t = string(b)
		}
		inputs = append(inputs, mergeInput{desc: "text", in: session.Input{Text: t}})
	}
	for _, path := range mergeFiles {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		inputs = append(inputs, mergeInput{desc: path, in: session.Input{Text: string(b)}})
	}
	for _, path := range mergeImages {
		data, mime, err := readImage(path)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, mergeInput{desc: path, in: session.Input{Image: data, ImageMIME: mime}})
	}
	for _, u := range mergeURLs {
		inputs = append(inputs, mergeInput{desc: u, url: u})
	}
	for _, path := range mergeJSON {
		inputs = append(inputs, mergeInput{desc: path, json: path})
	}
	for _, path := range mergeCSVIn {
		inputs = append(inputs, mergeInput{desc: path, csv: path})
	}
	if len(mergeLabels) > len(inputs) {
		return nil, fmt.Errorf("%d labels given for %d inputs", len(mergeLabels), len(inputs))
	}
	for i, l := range mergeLabels {
		inputs[i].in.Label = l
	}
	return inputs, nil
}

func needsOracle(inputs []mergeInput) bool {
	for _, in := range inputs {
		if in.json == "" && in.csv == "" {
			return true
		}
	}
	return mergeTiers || mergeFAAB
}

func runMerge(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	inputs, err := collectInputs(cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return errors.New("no inputs: use --text, --file, --image, --url, --json or --csv-in")
	}

	sess, claude, err := newSession(needsOracle(inputs))
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	for _, in := range inputs {
		msg, err := ingestOne(ctx, sess, in)
		if err != nil {
			return fmt.Errorf("%s: %w", in.desc, err)
		}
		fmt.Fprintf(stderr, "merged %s: %s\n", in.desc, msg)
	}

	if mergeTiers {
		if err := applyTiers(ctx, sess, claude); err != nil {
			return err
		}
	}
	if mergeFAAB {
		if err := applyFAAB(ctx, sess, claude); err != nil {
			return err
		}
	}

	if err := applyView(sess, mergeSort, mergeDesc, mergeFilters); err != nil {
		return err
	}
	snap := sess.Snapshot()

	if mergeOut != "" {
		if err := writeCSVFile(mergeOut, snap.Players, snap.Columns); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "wrote %d rows to %s\n", len(snap.Players), mergeOut)
	}
	if mergeSave != "" {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		id, err := db.SaveSnapshot(mergeSave, snap.Players, snap.Columns)
		if err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		fmt.Fprintf(stderr, "saved snapshot %d (%s)\n", id, mergeSave)
	}
	return printTable(cmd.OutOrStdout(), snap.Players, snap.Columns, mergeFormat, mergeLimit)
}

// ingestOne runs one input through the session, answering a clarification
// request with --answer when given, and describes what was merged.
func ingestOne(ctx context.Context, sess *session.Session, in mergeInput) (string, error) {
	switch {
	case in.csv != "":
		n, err := loadCSV(sess, in.csv)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d source columns, %d players in table", n, sess.Len()), nil
	case in.json != "":
		ex, err := oracle.FileExtractor{Path: in.json}.Extract(ctx, oracle.Request{})
		if err != nil {
			return "", err
		}
		label := in.in.Label
		if label == "" {
			label = ex.Source
		}
		out, err := sess.IngestRecords(label, ex.Players)
		return describeOutcome(out), err
	case in.url != "":
		text, err := fetch.Fetcher{}.PageText(ctx, in.url)
		if err != nil {
			return "", err
		}
		in.in.Text = text
	}

	out, err := sess.Ingest(ctx, in.in)
	if err != nil {
		return "", err
	}
	if out.Status == session.NeedsClarification {
		if mergeAnswer == "" {
			return "", fmt.Errorf("the AI needs clarification; rerun with --answer or use the shell:\n%s", formatQuestions(out.Questions))
		}
		if out, err = sess.Answer(ctx, mergeAnswer); err != nil {
			return "", err
		}
		if out.Status == session.NeedsClarification {
			return "", errors.New("the AI still needs clarification")
		}
	}
	return describeOutcome(out), nil
}

func describeOutcome(out session.Outcome) string {
	return fmt.Sprintf("%q, %d players (%d new, %d skipped)", out.Source, out.Accepted, out.NewPlayers, out.Dropped)
}

func formatQuestions(q map[string]string) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %s: %s\n", k, q[k])
	}
	return sb.String()
}

// applyView applies sort and position filters to the session.
func applyView(sess *session.Session, sortRef string, desc bool, filters []string) error {
	key := model.KeySnakeRank
	if sortRef != "" {
		k, ok := sess.ColumnKey(sortRef)
		if !ok {
			return fmt.Errorf("unknown sort column %q", sortRef)
		}
		key = k
	}
	dir := model.Ascending
	if desc {
		dir = model.Descending
	}
	if err := sess.SortBy(key, dir); err != nil {
		return err
	}
	for _, f := range filters {
		if _, err := sess.ToggleFilter(f); err != nil {
			return err
		}
	}
	return nil
}

func printTable(w io.Writer, players []model.AggregatedPlayer, cols []model.Column, format string, limit int) error {
	switch strings.ToLower(format) {
	case "table", "":
		if limit > 0 && len(players) > limit {
			players = players[:limit]
		}
		report.PrintPlayerTable(w, players, cols)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report.JSONTable(players, cols, limit))
	case "csv":
		if limit > 0 && len(players) > limit {
			players = players[:limit]
		}
		return report.WriteCSV(w, players, cols)
	}
	return fmt.Errorf("unknown format %q (want table, json or csv)", format)
}

func writeCSVFile(path string, players []model.AggregatedPlayer, cols []model.Column) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.WriteCSV(f, players, cols); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
