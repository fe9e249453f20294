// Package mcpserver exposes one consolidation session as a set of MCP tools
// served over streamable HTTP.
package mcpserver

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pable/go-playcall/internal/aggregator"
	"github.com/pable/go-playcall/internal/columns"
	"github.com/pable/go-playcall/internal/fetch"
	"github.com/pable/go-playcall/internal/logging"
	"github.com/pable/go-playcall/internal/metrics"
	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/oracle"
	"github.com/pable/go-playcall/internal/report"
	"github.com/pable/go-playcall/internal/session"
)

// ErrNoAnalyst is returned by analysis tools when no analysis oracle is
// configured.
var ErrNoAnalyst = errors.New("no analysis oracle configured")

// Options configures the HTTP surface and analysis bounds.
type Options struct {
	Name          string
	Version       string
	Path          string // MCP endpoint, default /mcp
	APIKey        string // empty disables auth
	AuthHeader    string // default X-API-Key; "Authorization: Bearer" is always accepted
	FAABThreshold float64
	Fetcher       fetch.Fetcher
	Metrics       *metrics.Recorder // nil disables /metrics
}

// ToolInfo describes one registered tool.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Server binds MCP tools to a session.
type Server struct {
	sess    *session.Session
	analyst oracle.Analyst
	opts    Options
	mcp     *mcp.Server
	tools   []ToolInfo
	log     logrus.FieldLogger
}

// New registers every tool. analyst may be nil; the analysis tools then
// report ErrNoAnalyst.
func New(sess *session.Session, analyst oracle.Analyst, opts Options, log logrus.FieldLogger) *Server {
	if opts.Name == "" {
		opts.Name = "playcall"
	}
	if opts.Version == "" {
		opts.Version = "v0.1.0"
	}
	if opts.Path == "" {
		opts.Path = "/mcp"
	}
	if opts.AuthHeader == "" {
		opts.AuthHeader = "X-API-Key"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		sess:    sess,
		analyst: analyst,
		opts:    opts,
		mcp:     mcp.NewServer(&mcp.Implementation{Name: opts.Name, Version: opts.Version}, nil),
		log:     logging.WithComponent(log, "mcp"),
	}
	s.register()
	return s
}

// MCPServer returns the underlying MCP server, e.g. for other transports.
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

// Tools lists registered tool names and descriptions in registration order.
func (s *Server) Tools() []ToolInfo { return append([]ToolInfo(nil), s.tools...) }

func addTool[T any](s *Server, tool *mcp.Tool, handler func(context.Context, *mcp.CallToolRequest, T) (*mcp.CallToolResult, any, error)) {
	s.tools = append(s.tools, ToolInfo{Name: tool.Name, Description: tool.Description})
	name := tool.Name
	mcp.AddTool(s.mcp, tool, func(ctx context.Context, req *mcp.CallToolRequest, args T) (*mcp.CallToolResult, any, error) {
		start := time.Now()
		res, out, err := handler(ctx, req, args)
		s.opts.Metrics.RecordTool(name, time.Since(start), err != nil || (res != nil && res.IsError))
		return res, out, err
	})
}

func (s *Server) register() {
	addTool(s, &mcp.Tool{
		Name:        "add_rankings",
		Description: "Extract a rankings list from pasted text or a web page and merge it into the table",
	}, s.addRankings)
	addTool(s, &mcp.Tool{
		Name:        "add_records",
		Description: "Merge already-structured ranking records under one source column",
	}, s.addRecords)
	addTool(s, &mcp.Tool{
		Name:        "answer_clarification",
		Description: "Answer the questions from an extraction that needed clarification and retry it",
	}, s.answerClarification)
	addTool(s, &mcp.Tool{
		Name:        "get_table",
		Description: "Current consolidated rankings table, sorted and filtered",
	}, s.getTable)
	addTool(s, &mcp.Tool{
		Name:        "rename_column",
		Description: "Rename a source column; ranks move with it",
	}, s.renameColumn)
	addTool(s, &mcp.Tool{
		Name:        "export_csv",
		Description: "Current table as CSV",
	}, s.exportCSV)
	addTool(s, &mcp.Tool{
		Name:        "generate_tiers",
		Description: "Ask the analysis model for draft tiers and add an AI Tier column",
	}, s.generateTiers)
	addTool(s, &mcp.Tool{
		Name:        "faab_bids",
		Description: "Ask the analysis model for FAAB bids on players ranked past the threshold",
	}, s.faabBids)
	addTool(s, &mcp.Tool{
		Name:        "reset",
		Description: "Clear all players, source columns, sort, filters and pending clarifications",
	}, s.reset)
}

// ---- Tool arguments ----

type AddRankingsArgs struct {
	Text  string `json:"text,omitempty" jsonschema:"Pasted rankings content"`
	URL   string `json:"url,omitempty" jsonschema:"Page to fetch instead of text"`
	Label string `json:"label,omitempty" jsonschema:"Source column name (default: detected source)"`
}

type RecordArg struct {
	Rank     float64 `json:"rank" jsonschema:"Rank reported by the source"`
	Name     string  `json:"name" jsonschema:"Player name"`
	Position string  `json:"position" jsonschema:"QB, RB, WR, TE, K or DST"`
	Team     string  `json:"team" jsonschema:"Team code"`
}

type AddRecordsArgs struct {
	Source  string      `json:"source,omitempty" jsonschema:"Source column name (default: next Source N)"`
	Records []RecordArg `json:"records" jsonschema:"Ranking records"`
}

type AnswerArgs struct {
	Clarification string `json:"clarification" jsonschema:"Answers to the pending questions"`
}

type GetTableArgs struct {
	Position string `json:"position,omitempty" jsonschema:"Only this position (QB, RB, WR, TE, Flex, K, DST)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum rows (0 = all)"`
}

type RenameArgs struct {
	From string `json:"from" jsonschema:"Current column label or key"`
	To   string `json:"to" jsonschema:"New column label"`
}

type EmptyArgs struct{}

// ---- Handlers ----

func (s *Server) addRankings(ctx context.Context, _ *mcp.CallToolRequest, args AddRankingsArgs) (*mcp.CallToolResult, any, error) {
	text := strings.TrimSpace(args.Text)
	if text == "" && args.URL != "" {
		page, err := s.opts.Fetcher.PageText(ctx, args.URL)
		if err != nil {
			return toolError(err), nil, nil
		}
		text = page
	}
	if text == "" {
		return toolError(errors.New("text or url is required")), nil, nil
	}
	out, err := s.sess.Ingest(ctx, session.Input{Text: text, Label: args.Label})
	return s.outcome(out, err)
}

func (s *Server) addRecords(_ context.Context, _ *mcp.CallToolRequest, args AddRecordsArgs) (*mcp.CallToolResult, any, error) {
	raws := make([]model.RawRecord, len(args.Records))
	for i, r := range args.Records {
		raws[i] = model.RawRecord{Rank: r.Rank, Name: r.Name, Position: r.Position, Team: r.Team}
	}
	out, err := s.sess.IngestRecords(args.Source, raws)
	return s.outcome(out, err)
}

func (s *Server) answerClarification(ctx context.Context, _ *mcp.CallToolRequest, args AnswerArgs) (*mcp.CallToolResult, any, error) {
	out, err := s.sess.Answer(ctx, args.Clarification)
	return s.outcome(out, err)
}

type outcomeJSON struct {
	Status       string            `json:"status"`
	IngestionID  string            `json:"ingestion_id"`
	Source       string            `json:"source,omitempty"`
	Accepted     int               `json:"accepted"`
	Dropped      int               `json:"dropped"`
	NewPlayers   int               `json:"new_players"`
	Questions    map[string]string `json:"questions,omitempty"`
	TotalPlayers int               `json:"total_players"`
}

func (s *Server) outcome(out session.Outcome, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		s.opts.Metrics.RecordIngestion("error")
		return toolError(err), nil, nil
	}
	s.opts.Metrics.RecordIngestion(out.Status.String())
	return toolJSON(outcomeJSON{
		Status:       out.Status.String(),
		IngestionID:  out.IngestionID,
		Source:       out.Source,
		Accepted:     out.Accepted,
		Dropped:      out.Dropped,
		NewPlayers:   out.NewPlayers,
		Questions:    out.Questions,
		TotalPlayers: s.sess.Len(),
	})
}

type tableJSON struct {
	report.TableJSON
	Sort    model.SortConfig  `json:"sort"`
	Pending map[string]string `json:"pending_questions,omitempty"`
}

func (s *Server) getTable(_ context.Context, _ *mcp.CallToolRequest, args GetTableArgs) (*mcp.CallToolResult, any, error) {
	snap := s.sess.Snapshot()
	players := snap.Players
	if args.Position != "" {
		pos, ok := lookupPosition(args.Position)
		if !ok {
			return toolError(fmt.Errorf("%w: %q", session.ErrUnknownPosition, args.Position)), nil, nil
		}
		players = aggregator.Filter(players, []string{pos})
	}
	return toolJSON(tableJSON{
		TableJSON: report.JSONTable(players, snap.Columns, args.Limit),
		Sort:      snap.Sort,
		Pending:   snap.Pending,
	})
}

func lookupPosition(pos string) (string, bool) {
	for _, p := range aggregator.FilterOrder {
		if strings.EqualFold(p, strings.TrimSpace(pos)) {
			return p, true
		}
	}
	return "", false
}

func (s *Server) renameColumn(_ context.Context, _ *mcp.CallToolRequest, args RenameArgs) (*mcp.CallToolResult, any, error) {
	key, ok := s.sess.ColumnKey(args.From)
	if !ok {
		return toolError(fmt.Errorf("%w: %q", columns.ErrUnknownColumn, args.From)), nil, nil
	}
	newKey, err := s.sess.Rename(key, args.To)
	if err != nil {
		return toolError(err), nil, nil
	}
	return toolJSON(map[string]string{"from": key, "to": newKey})
}

func (s *Server) exportCSV(_ context.Context, _ *mcp.CallToolRequest, _ EmptyArgs) (*mcp.CallToolResult, any, error) {
	snap := s.sess.Snapshot()
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, snap.Players, snap.Columns); err != nil {
		return toolError(err), nil, nil
	}
	return toolText(buf.String()), nil, nil
}

type appliedJSON struct {
	Column   string `json:"column"`
	Sent     int    `json:"sent"`
	Returned int    `json:"returned"`
	Matched  int    `json:"matched"`
}

func (s *Server) generateTiers(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyArgs) (*mcp.CallToolResult, any, error) {
	if s.analyst == nil {
		return toolError(ErrNoAnalyst), nil, nil
	}
	entries := s.sess.AnalysisInput(0, 0)
	if len(entries) == 0 {
		return toolError(errors.New("no ranked players to tier")), nil, nil
	}
	tiers, err := s.analyst.Tiers(ctx, entries)
	if err != nil {
		return toolError(err), nil, nil
	}
	matched := s.sess.ApplyTiers(tiers)
	return toolJSON(appliedJSON{Column: columns.LabelAITier, Sent: len(entries), Returned: len(tiers), Matched: matched})
}

func (s *Server) faabBids(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyArgs) (*mcp.CallToolResult, any, error) {
	if s.analyst == nil {
		return toolError(ErrNoAnalyst), nil, nil
	}
	entries := s.sess.AnalysisInput(s.opts.FAABThreshold, 0)
	if len(entries) == 0 {
		return toolError(fmt.Errorf("no players ranked past %g", s.opts.FAABThreshold)), nil, nil
	}
	bids, err := s.analyst.FAABBids(ctx, entries)
	if err != nil {
		return toolError(err), nil, nil
	}
	matched := s.sess.ApplyFAAB(bids)
	return toolJSON(appliedJSON{Column: columns.LabelFAABRec, Sent: len(entries), Returned: len(bids), Matched: matched})
}

func (s *Server) reset(_ context.Context, _ *mcp.CallToolRequest, _ EmptyArgs) (*mcp.CallToolResult, any, error) {
	s.sess.Reset()
	return toolText("session reset"), nil, nil
}

// ---- Results ----

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(err), nil, nil
	}
	return toolText(string(b)), nil, nil
}

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("error: %v", err)},
		},
	}
}

// ---- HTTP ----

// Handler serves the MCP endpoint plus /health, /tools and /metrics, all
// behind the API key when one is set.
func (s *Server) Handler() http.Handler {
	mcpHandler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.mcp
	}, &mcp.StreamableHTTPOptions{JSONResponse: true})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.withAuth(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	mux.HandleFunc("/tools", s.withAuth(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		b, _ := json.MarshalIndent(map[string]any{"tools": s.tools}, "", "  ")
		w.Write(b)
	}))
	if s.opts.Metrics != nil {
		mux.HandleFunc("/metrics", s.withAuth(s.opts.Metrics.Handler().ServeHTTP))
	}
	mux.HandleFunc(s.opts.Path, s.withAuth(mcpHandler.ServeHTTP))
	return mux
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIKey == "" {
			next(w, r)
			return
		}
		key := strings.TrimSpace(r.Header.Get(s.opts.AuthHeader))
		if key == "" {
			if authz := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				key = strings.TrimSpace(authz[7:])
			}
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.opts.APIKey)) != 1 {
			s.log.WithField("remote", r.RemoteAddr).Warn("rejected unauthorized request")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next(w, r)
	}
}

// ListenAndServe serves Handler on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.WithFields(logrus.Fields{"addr": addr, "path": s.opts.Path}).Info("MCP HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
