// Package oracle is the boundary with the language model that extracts
// rankings from free-form input and produces downstream analysis.
package oracle

import (
	"context"
	"errors"

	"github.com/pable/go-playcall/internal/model"
)

var (
	ErrMalformedResponse = errors.New("AI response was malformed or missing data")
	ErrEmptyResult       = errors.New("the AI could not extract any valid player data; check the format of the pasted content or image")
	ErrStillEmpty        = errors.New("the AI still could not extract player data, even with the provided details")
)

// Request is one extraction attempt. Clarification carries the user's
// answers to a previous round of questions.
type Request struct {
	Text          string
	Image         []byte
	ImageMIME     string
	Clarification string
}

// Extraction is the oracle's answer: either players from a named source or,
// when Ambiguous, the questions the user must answer first.
type Extraction struct {
	Source    string
	Players   []model.RawRecord
	Questions map[string]string
}

// Ambiguous reports whether the oracle asked for clarification instead of
// extracting.
func (e *Extraction) Ambiguous() bool { return len(e.Questions) > 0 }

// Extractor turns raw input into candidate ranking records.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*Extraction, error)
}

// TradeAnalysis is a graded verdict on a proposed trade.
type TradeAnalysis struct {
	Grade     string `json:"grade"`
	Reasoning string `json:"reasoning"`
}

// ChatMessage is one turn of the assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Analyst runs the downstream analysis steps over a consolidated table.
// Tiers and FAABBids return player name → value.
type Analyst interface {
	Tiers(ctx context.Context, players []model.AnalysisEntry) (map[string]float64, error)
	FAABBids(ctx context.Context, players []model.AnalysisEntry) (map[string]float64, error)
	Sleepers(ctx context.Context, players []model.AnalysisEntry) (string, error)
	Busts(ctx context.Context, players []model.AnalysisEntry) (string, error)
	AnalyzeTrade(ctx context.Context, text string) (TradeAnalysis, error)
	RosterAdvice(ctx context.Context, text string) (string, error)
	Chat(ctx context.Context, history []ChatMessage, table string) (string, error)
}
