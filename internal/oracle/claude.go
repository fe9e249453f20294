package oracle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pable/go-playcall/internal/logging"
	"github.com/pable/go-playcall/internal/model"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-haiku-4-5-20251001"

// ErrNoAPIKey is returned by NewClaude when no key is configured.
var ErrNoAPIKey = errors.New("no API key: set ANTHROPIC_API_KEY or use --api-key")

// BreakerSettings configures the circuit breaker in front of the API.
type BreakerSettings struct {
	MaxRequests uint32        // probes allowed while half-open
	Interval    time.Duration // closed-state counter reset period
	Timeout     time.Duration // open-state duration before probing
	MaxFailures uint32        // consecutive failures that trip the breaker
}

// ClaudeConfig configures the Anthropic-backed oracle.
type ClaudeConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
	Breaker   BreakerSettings
}

// Claude implements Extractor and Analyst on the Anthropic Messages API.
type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	cb        *gobreaker.CircuitBreaker
	log       logrus.FieldLogger
}

// NewClaude builds the client. The API key falls back to $ANTHROPIC_API_KEY.
// Extra request options are appended after the key (base URL, retries).
func NewClaude(cfg ClaudeConfig, log logrus.FieldLogger, opts ...option.RequestOption) (*Claude, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = logging.WithComponent(log, "oracle")

	maxFailures := cfg.Breaker.MaxFailures
	if maxFailures == 0 {
		maxFailures = 3
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "anthropic",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// A caller giving up says nothing about the service's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"circuit":    name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Warn("oracle circuit breaker state changed")
		},
	})

	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Claude{
		client:    anthropic.NewClient(all...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		cb:        cb,
		log:       log,
	}, nil
}

// complete sends one request through the breaker and returns the joined
// text of the reply.
func (c *Claude) complete(ctx context.Context, system string, msgs []anthropic.MessageParam) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	start := time.Now()
	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.Messages.New(ctx, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("AI service temporarily unavailable: %w", err)
		}
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return "", fmt.Errorf("API authentication failed, check your API key: %w", err)
		}
		return "", fmt.Errorf("anthropic request: %w", err)
	}
	msg := res.(*anthropic.Message)

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	c.log.WithFields(logrus.Fields{
		"model":         c.model,
		"input_tokens":  msg.Usage.InputTokens,
		"output_tokens": msg.Usage.OutputTokens,
		"elapsed":       time.Since(start).Round(time.Millisecond),
	}).Debug("oracle call complete")
	return sb.String(), nil
}

func (c *Claude) ask(ctx context.Context, system, prompt string) (string, error) {
	return c.complete(ctx, system, []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	})
}

// ---- Extraction ----

// Extract implements Extractor.
func (c *Claude) Extract(ctx context.Context, req Request) (*Extraction, error) {
	var blocks []anthropic.ContentBlockParamUnion
	if len(req.Image) > 0 && req.ImageMIME != "" {
		blocks = append(blocks, anthropic.NewImageBlockBase64(req.ImageMIME, base64.StdEncoding.EncodeToString(req.Image)))
	}
	if strings.TrimSpace(req.Text) != "" {
		blocks = append(blocks, anthropic.NewTextBlock(req.Text))
	}
	if len(blocks) == 0 {
		blocks = append(blocks, anthropic.NewTextBlock("(No content provided to analyze)"))
	}

	text, err := c.complete(ctx, extractionPrompt(req.Clarification), []anthropic.MessageParam{
		anthropic.NewUserMessage(blocks...),
	})
	if err != nil {
		return nil, err
	}
	return ParseExtraction([]byte(text), req.Clarification != "")
}

// ---- Analysis ----

func entriesJSON(players []model.AnalysisEntry) string {
	b, _ := json.Marshal(players)
	return string(b)
}

// Tiers implements Analyst.
func (c *Claude) Tiers(ctx context.Context, players []model.AnalysisEntry) (map[string]float64, error) {
	text, err := c.ask(ctx, jsonOnlySystem, fmt.Sprintf(tiersPrompt, entriesJSON(players)))
	if err != nil {
		return nil, err
	}
	return parseValueMap([]byte(text), model.KeyAITier)
}

// FAABBids implements Analyst. Callers pass only waiver-range players.
func (c *Claude) FAABBids(ctx context.Context, players []model.AnalysisEntry) (map[string]float64, error) {
	if len(players) == 0 {
		return map[string]float64{}, nil
	}
	text, err := c.ask(ctx, jsonOnlySystem, fmt.Sprintf(faabPrompt, entriesJSON(players)))
	if err != nil {
		return nil, err
	}
	return parseValueMap([]byte(text), model.KeyFAABRec)
}

func playerList(players []model.AnalysisEntry) string {
	var sb strings.Builder
	for _, p := range players {
		fmt.Fprintf(&sb, "%.1f. %s (%s)\n", p.SnakeRank, p.Name, p.Position)
	}
	return sb.String()
}

// Sleepers implements Analyst.
func (c *Claude) Sleepers(ctx context.Context, players []model.AnalysisEntry) (string, error) {
	return c.ask(ctx, "", fmt.Sprintf(sleepersPrompt, playerList(players)))
}

// Busts implements Analyst.
func (c *Claude) Busts(ctx context.Context, players []model.AnalysisEntry) (string, error) {
	return c.ask(ctx, "", fmt.Sprintf(bustsPrompt, playerList(players)))
}

// AnalyzeTrade implements Analyst.
func (c *Claude) AnalyzeTrade(ctx context.Context, text string) (TradeAnalysis, error) {
	out, err := c.ask(ctx, jsonOnlySystem, fmt.Sprintf(tradePrompt, text))
	if err != nil {
		return TradeAnalysis{}, err
	}
	return parseTrade([]byte(out))
}

// RosterAdvice implements Analyst.
func (c *Claude) RosterAdvice(ctx context.Context, text string) (string, error) {
	return c.ask(ctx, "", fmt.Sprintf(rosterPrompt, text))
}

// Chat implements Analyst. table is the pipe-separated view of the current
// rankings, or "" when nothing is loaded.
func (c *Claude) Chat(ctx context.Context, history []ChatMessage, table string) (string, error) {
	tableCtx := "The user has not loaded any data yet. Answer their questions generally about fantasy football."
	if table != "" {
		tableCtx = "Here is the current data table the user is viewing:\n" + table
	}
	msgs := make([]anthropic.MessageParam, 0, len(history))
	for _, h := range history {
		if h.Role == "assistant" {
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(h.Content)))
			continue
		}
		msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(h.Content)))
	}
	if len(msgs) == 0 {
		return "", errors.New("chat: empty history")
	}
	return c.complete(ctx, chatSystem+"\n\nCONTEXT:\n"+tableCtx, msgs)
}
