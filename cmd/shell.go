package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/fetch"
	"github.com/pable/go-playcall/internal/oracle"
	"github.com/pable/go-playcall/internal/report"
	"github.com/pable/go-playcall/internal/session"
	"github.com/pable/go-playcall/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cHeader   = color.New(color.FgCyan, color.Bold)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
	cOK       = color.New(color.FgGreen)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive consolidation session",
	Long:  "Open an in-memory session: add rankings from any source, inspect the merged table, and run AI analysis. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

// replSession is the state of one interactive session.
type replSession struct {
	sess    *session.Session
	analyst oracle.Analyst // nil without an API key
	db      *storage.DB    // opened on first save
	history []oracle.ChatMessage
	in      *bufio.Scanner
	out     io.Writer
}

func runShell(cmd *cobra.Command, _ []string) error {
	sess, claude, err := newSession(false)
	if err != nil {
		return err
	}
	r := &replSession{
		sess: sess,
		in:   bufio.NewScanner(cmd.InOrStdin()),
		out:  cmd.OutOrStdout(),
	}
	r.in.Buffer(make([]byte, 0, 64*1024), 4<<20)
	if claude != nil {
		r.analyst = claude
	}
	defer func() {
		if r.db != nil {
			r.db.Close()
		}
	}()

	cGreeting.Fprintln(r.out, "playcall shell")
	cMuted.Fprintln(r.out, "type 'help' or 'exit'")
	if claude == nil {
		cWarn.Fprintln(r.out, "no Anthropic API key: only 'csv' input works and AI analysis is disabled")
	}
	fmt.Fprintln(r.out)

	for {
		cPrompt.Fprint(r.out, "playcall")
		if n := r.sess.Len(); n > 0 {
			cMuted.Fprintf(r.out, " (%d)", n)
		}
		cMuted.Fprint(r.out, "> ")
		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			break
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		tokens, err := splitArgs(line)
		if err != nil {
			cError.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if len(tokens) == 0 {
			continue
		}
		if tokens[0] == "exit" || tokens[0] == "quit" {
			return nil
		}
		r.dispatch(cmd.Context(), tokens[0], tokens[1:])
	}
	return r.in.Err()
}

// dispatch runs one command. Ctrl-C cancels the command, not the shell.
func (r *replSession) dispatch(parent context.Context, name string, args []string) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	var err error
	switch name {
	case "help":
		r.help()
	case "paste":
		err = r.paste(ctx, strings.Join(args, " "))
	case "file":
		err = r.file(ctx, args)
	case "image":
		err = r.image(ctx, args)
	case "url":
		err = r.url(ctx, args)
	case "csv":
		err = r.csv(args)
	case "answer":
		err = r.answer(ctx, strings.Join(args, " "))
	case "show":
		err = r.show(args)
	case "columns":
		snap := r.sess.Snapshot()
		report.PrintColumns(r.out, snap.Columns)
	case "rename":
		err = r.rename(args)
	case "sort":
		err = r.sortBy(args)
	case "filter":
		err = r.filter(args)
	case "export":
		err = r.export(args)
	case "save":
		err = r.save(strings.Join(args, " "))
	case "tiers":
		err = r.withAnalyst(func(a oracle.Analyst) error { return applyTiers(ctx, r.sess, a) })
		if err == nil {
			cOK.Fprintln(r.out, "added AI Tier column")
		}
	case "faab":
		err = r.withAnalyst(func(a oracle.Analyst) error { return applyFAAB(ctx, r.sess, a) })
		if err == nil {
			cOK.Fprintln(r.out, "added FAAB Rec. column")
		}
	case "sleepers":
		err = r.withAnalyst(func(a oracle.Analyst) error {
			text, err := a.Sleepers(ctx, r.sess.AnalysisInput(0, cfg.Analysis.SearchLimit))
			if err == nil {
				printAnalysis(r.out, "Sleepers", text)
			}
			return err
		})
	case "busts":
		err = r.withAnalyst(func(a oracle.Analyst) error {
			text, err := a.Busts(ctx, r.sess.AnalysisInput(0, cfg.Analysis.SearchLimit))
			if err == nil {
				printAnalysis(r.out, "Busts", text)
			}
			return err
		})
	case "trade":
		err = r.withText(args, "trade <description>", func(a oracle.Analyst, text string) error {
			res, err := a.AnalyzeTrade(ctx, text)
			if err == nil {
				printAnalysis(r.out, "Trade grade: "+res.Grade, res.Reasoning)
			}
			return err
		})
	case "advice":
		err = r.withText(args, "advice <roster>", func(a oracle.Analyst, text string) error {
			advice, err := a.RosterAdvice(ctx, text)
			if err == nil {
				printAnalysis(r.out, "Roster advice", advice)
			}
			return err
		})
	case "chat":
		err = r.chat(ctx, strings.Join(args, " "))
	case "reset":
		r.sess.Reset()
		r.history = nil
		cOK.Fprintln(r.out, "session cleared")
	default:
		cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", name)
		return
	}
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func (r *replSession) help() {
	fmt.Fprintln(r.out)
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"paste [label]", "paste rankings text, end with a line containing only '.'"},
		{"file <path> [label]", "add rankings from a text file"},
		{"image <path> [label]", "add rankings from a screenshot"},
		{"url <url> [label]", "add rankings from a web page"},
		{"csv <path>", "load a table exported by playcall"},
		{"answer <text>", "answer the AI's clarification questions"},
		{"show [n]", "print the table (first n rows)"},
		{"columns", "list columns"},
		{"rename <column> <label>", "rename a source column (quote names with spaces)"},
		{"sort <column>", "sort by a column; repeat to reverse"},
		{"filter [position]", "toggle a position filter (QB RB WR TE Flex K DST)"},
		{"export <path>", "write the current view as CSV"},
		{"save <label>", "save the current view as a snapshot"},
		{"tiers", "add AI draft tiers"},
		{"faab", "add AI FAAB bids for waiver-range players"},
		{"sleepers / busts", "AI picks of undervalued / overvalued players"},
		{"trade <description>", "grade a trade"},
		{"advice <roster>", "review a roster"},
		{"chat <message>", "ask about the table"},
		{"reset", "clear the session"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, e := range rows {
		fmt.Fprint(r.out, "  ")
		cCmd.Fprintf(r.out, "%-28s", e.cmd)
		fmt.Fprintln(r.out, e.desc)
	}
	fmt.Fprintln(r.out)
}

// ---- Input ----

func (r *replSession) ingest(ctx context.Context, in session.Input) error {
	if r.analyst == nil {
		return oracle.ErrNoAPIKey
	}
	cMuted.Fprintln(r.out, "extracting…")
	out, err := r.sess.Ingest(ctx, in)
	if err != nil {
		return err
	}
	r.printOutcome(out)
	return nil
}

func (r *replSession) printOutcome(out session.Outcome) {
	if out.Status == session.NeedsClarification {
		cWarn.Fprintln(r.out, "The AI needs more information before it can extract this list:")
		fmt.Fprint(r.out, formatQuestions(out.Questions))
		cMuted.Fprintln(r.out, "reply with: answer <your answers>")
		return
	}
	cOK.Fprintf(r.out, "merged %q: %d players (%d new", out.Source, out.Accepted, out.NewPlayers)
	if out.Dropped > 0 {
		cOK.Fprintf(r.out, ", %d skipped", out.Dropped)
	}
	cOK.Fprintf(r.out, "), %d in table\n", r.sess.Len())
}

func (r *replSession) paste(ctx context.Context, label string) error {
	cMuted.Fprintln(r.out, "paste rankings; finish with a line containing only '.'")
	var lines []string
	for r.in.Scan() {
		line := r.in.Text()
		if strings.TrimSpace(line) == "." {
			break
		}
		lines = append(lines, line)
	}
	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		return errors.New("nothing pasted")
	}
	return r.ingest(ctx, session.Input{Text: text, Label: label})
}

func pathAndLabel(args []string, usage string) (string, string, error) {
	if len(args) == 0 {
		return "", "", fmt.Errorf("usage: %s", usage)
	}
	return args[0], strings.Join(args[1:], " "), nil
}

func (r *replSession) file(ctx context.Context, args []string) error {
	path, label, err := pathAndLabel(args, "file <path> [label]")
	if err != nil {
		return err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return r.ingest(ctx, session.Input{Text: string(b), Label: label})
}

func (r *replSession) image(ctx context.Context, args []string) error {
	path, label, err := pathAndLabel(args, "image <path> [label]")
	if err != nil {
		return err
	}
	data, mime, err := readImage(path)
	if err != nil {
		return err
	}
	return r.ingest(ctx, session.Input{Image: data, ImageMIME: mime, Label: label})
}

func (r *replSession) url(ctx context.Context, args []string) error {
	u, label, err := pathAndLabel(args, "url <url> [label]")
	if err != nil {
		return err
	}
	cMuted.Fprintln(r.out, "fetching…")
	text, err := fetch.PageText(ctx, u)
	if err != nil {
		return err
	}
	return r.ingest(ctx, session.Input{Text: text, Label: label})
}

func (r *replSession) csv(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: csv <path>")
	}
	n, err := loadCSV(r.sess, args[0])
	if err != nil {
		return err
	}
	cOK.Fprintf(r.out, "loaded %d source columns, %d players in table\n", n, r.sess.Len())
	return nil
}

func (r *replSession) answer(ctx context.Context, text string) error {
	if r.analyst == nil {
		return oracle.ErrNoAPIKey
	}
	cMuted.Fprintln(r.out, "retrying with your answers…")
	out, err := r.sess.Answer(ctx, text)
	if err != nil {
		return err
	}
	r.printOutcome(out)
	return nil
}

// ---- Table ----

func (r *replSession) show(args []string) error {
	snap := r.sess.Snapshot()
	if snap.Total == 0 {
		cMuted.Fprintln(r.out, "No players yet. Add rankings with paste, file, image, url or csv.")
		return nil
	}
	players := snap.Players
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid row count %q", args[0])
		}
		if n < len(players) {
			players = players[:n]
		}
	}
	report.PrintPlayerTable(r.out, players, snap.Columns)

	status := fmt.Sprintf("%d of %d players, sorted by %s (%s)",
		len(snap.Players), snap.Total, labelFor(snap, snap.Sort.Key), snap.Sort.Direction)
	if len(snap.Filters) > 0 {
		status += ", filter: " + strings.Join(snap.Filters, " ")
	}
	cMuted.Fprintln(r.out, status)
	if len(snap.Pending) > 0 {
		cWarn.Fprintln(r.out, "an extraction is waiting for your answers (see 'answer')")
	}
	return nil
}

func labelFor(snap session.Snapshot, key string) string {
	for _, c := range snap.Columns {
		if c.Key == key {
			return c.Label
		}
	}
	return key
}

func (r *replSession) rename(args []string) error {
	if len(args) < 2 {
		return errors.New(`usage: rename <column> <new label>  (e.g. rename "Source 1" ESPN)`)
	}
	key, ok := r.sess.ColumnKey(args[0])
	if !ok {
		return fmt.Errorf("unknown column %q", args[0])
	}
	newKey, err := r.sess.Rename(key, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	cOK.Fprintf(r.out, "renamed %q to %q\n", key, newKey)
	return nil
}

func (r *replSession) sortBy(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: sort <column>")
	}
	ref := strings.Join(args, " ")
	key, ok := r.sess.ColumnKey(ref)
	if !ok {
		return fmt.Errorf("unknown column %q", ref)
	}
	sc, err := r.sess.SetSort(key)
	if err != nil {
		return err
	}
	cOK.Fprintf(r.out, "sorted by %s (%s)\n", ref, sc.Direction)
	return nil
}

func (r *replSession) filter(args []string) error {
	if len(args) == 0 {
		snap := r.sess.Snapshot()
		cMuted.Fprintf(r.out, "available: %s\n", strings.Join(snap.Positions, " "))
		cMuted.Fprintf(r.out, "active: %s\n", strings.Join(snap.Filters, " "))
		return nil
	}
	var active []string
	for _, a := range args {
		var err error
		if active, err = r.sess.ToggleFilter(a); err != nil {
			return err
		}
	}
	if len(active) == 0 {
		cOK.Fprintln(r.out, "showing all positions")
		return nil
	}
	cOK.Fprintf(r.out, "showing %s\n", strings.Join(active, " "))
	return nil
}

func (r *replSession) export(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: export <path>")
	}
	snap := r.sess.Snapshot()
	if snap.Total == 0 {
		return errors.New("nothing to export")
	}
	if err := writeCSVFile(args[0], snap.Players, snap.Columns); err != nil {
		return err
	}
	cOK.Fprintf(r.out, "wrote %d rows to %s\n", len(snap.Players), args[0])
	return nil
}

func (r *replSession) save(label string) error {
	if label == "" {
		return errors.New("usage: save <label>")
	}
	snap := r.sess.Snapshot()
	if snap.Total == 0 {
		return errors.New("nothing to save")
	}
	if r.db == nil {
		db, err := openDB()
		if err != nil {
			return err
		}
		r.db = db
	}
	id, err := r.db.SaveSnapshot(label, snap.Players, snap.Columns)
	if err != nil {
		return err
	}
	cOK.Fprintf(r.out, "saved snapshot %d (%s)\n", id, label)
	return nil
}

// ---- Analysis ----

func (r *replSession) withAnalyst(fn func(oracle.Analyst) error) error {
	if r.analyst == nil {
		return oracle.ErrNoAPIKey
	}
	cMuted.Fprintln(r.out, "thinking…")
	return fn(r.analyst)
}

// withText runs fn with the joined args, which must not be empty.
func (r *replSession) withText(args []string, usage string, fn func(oracle.Analyst, string) error) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return fmt.Errorf("usage: %s", usage)
	}
	return r.withAnalyst(func(a oracle.Analyst) error { return fn(a, text) })
}

func (r *replSession) chat(ctx context.Context, msg string) error {
	if strings.TrimSpace(msg) == "" {
		return errors.New("usage: chat <message>")
	}
	history := append(r.history, oracle.ChatMessage{Role: "user", Content: msg})
	snap := r.sess.Snapshot()
	var reply string
	err := r.withAnalyst(func(a oracle.Analyst) error {
		var err error
		reply, err = a.Chat(ctx, history, report.PipeTable(snap.Players, snap.Columns, cfg.Analysis.ChatRows))
		return err
	})
	if err != nil {
		return err
	}
	r.history = append(history, oracle.ChatMessage{Role: "assistant", Content: reply})
	cHeader.Fprintln(r.out, "assistant:")
	fmt.Fprintln(r.out, report.Markdown(reply, 80, !color.NoColor))
	return nil
}

// splitArgs splits a shell line on whitespace, keeping double-quoted
// segments together.
func splitArgs(line string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, c := range line {
		switch {
		case c == '"':
			quoted = !quoted
			started = true
		case !quoted && (c == ' ' || c == '\t'):
			if started {
				out = append(out, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(c)
			started = true
		}
	}
	if quoted {
		return nil, errors.New("unterminated quote")
	}
	if started {
		out = append(out, cur.String())
	}
	if len(out) == 0 {
		return nil, errors.New("empty command")
	}
	return out, nil
}
