package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pable/go-playcall/internal/normalize"
	"github.com/pable/go-playcall/internal/oracle"
	"github.com/pable/go-playcall/internal/report"
	"github.com/pable/go-playcall/internal/roster"
	"github.com/pable/go-playcall/internal/session"
	"github.com/pable/go-playcall/internal/storage"
)

// loadRoster returns the bundled roster unless the config points at
// replacement files.
func loadRoster() (*roster.Index, error) {
	if cfg.Roster.PlayersFile == "" {
		return roster.Default()
	}
	players, err := os.Open(cfg.Roster.PlayersFile)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer players.Close()
	byes, err := os.Open(cfg.Roster.ByesFile)
	if err != nil {
		return nil, fmt.Errorf("open bye weeks: %w", err)
	}
	defer byes.Close()
	return roster.Load(players, byes)
}

// newClaude builds the Anthropic-backed oracle from the loaded config.
func newClaude() (*oracle.Claude, error) {
	return oracle.NewClaude(oracle.ClaudeConfig{
		APIKey:    cfg.Anthropic.APIKey,
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
		Breaker: oracle.BreakerSettings{
			MaxRequests: cfg.Breaker.MaxRequests,
			Interval:    cfg.Breaker.Interval,
			Timeout:     cfg.Breaker.Timeout,
			MaxFailures: cfg.Breaker.MaxFailures,
		},
	}, log)
}

// newSession wires a session to the roster and, when an API key is
// available, to Claude. claude is nil without a key; requireOracle turns
// that into an error.
func newSession(requireOracle bool) (*session.Session, *oracle.Claude, error) {
	idx, err := loadRoster()
	if err != nil {
		return nil, nil, err
	}
	claude, err := newClaude()
	if err != nil {
		if requireOracle || !errors.Is(err, oracle.ErrNoAPIKey) {
			return nil, nil, err
		}
		claude = nil
	}
	var extractor oracle.Extractor
	if claude != nil {
		extractor = claude
	}
	return session.New(extractor, normalize.New(idx, log), log), claude, nil
}

// openDB opens the snapshot store, creating its directory if needed.
func openDB() (*storage.DB, error) {
	if dir := filepath.Dir(cfg.DB); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := storage.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}

// loadCSV merges every source column of a previously exported CSV into sess
// and returns how many sources were loaded.
func loadCSV(sess *session.Session, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	cols, players, err := report.ReadCSV(f)
	if err != nil {
		return 0, err
	}
	records := report.SourceRecords(cols, players)
	n := 0
	for _, source := range report.SourceOrder(cols) {
		if len(records[source]) == 0 {
			continue
		}
		if _, err := sess.IngestRecords(source, records[source]); err != nil {
			return n, fmt.Errorf("load %s column %q: %w", path, source, err)
		}
		n++
	}
	return n, nil
}

// readImage loads an image file and sniffs its MIME type.
func readImage(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	mime := http.DetectContentType(data)
	switch mime {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return data, mime, nil
	}
	return nil, "", fmt.Errorf("%s: unsupported image type %s", path, mime)
}
