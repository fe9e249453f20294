package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pable/go-playcall/internal/model"
)

// extractionDoc is the JSON shape the extraction prompt asks for.
type extractionDoc struct {
	Source             string          `json:"source"`
	Players            json.RawMessage `json:"players"`
	NeedsClarification bool            `json:"needs_clarification"`
	Questions          map[string]any  `json:"questions"`
}

// stripFences removes a surrounding ```json ... ``` block and any prose
// before the first '{' or '[' or after the matching last bracket.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return strings.TrimSpace(s)
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return strings.TrimSpace(s[start:])
	}
	return s[start : end+1]
}

// ParseExtraction decodes an extraction response. clarified reports whether
// the request carried user clarification; a second round of questions is
// then ignored and an empty player list becomes ErrStillEmpty.
func ParseExtraction(body []byte, clarified bool) (*Extraction, error) {
	var doc extractionDoc
	dec := json.NewDecoder(bytes.NewReader([]byte(stripFences(string(body)))))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if doc.NeedsClarification && !clarified {
		questions := make(map[string]string)
		for topic, q := range doc.Questions {
			if s, ok := q.(string); ok && strings.TrimSpace(s) != "" {
				questions[topic] = s
			}
		}
		if len(questions) > 0 {
			return &Extraction{Source: doc.Source, Questions: questions}, nil
		}
	}

	raw := bytes.TrimSpace(doc.Players)
	if strings.TrimSpace(doc.Source) == "" || len(raw) == 0 || raw[0] != '[' {
		return nil, ErrMalformedResponse
	}
	var players []model.RawRecord
	pd := json.NewDecoder(bytes.NewReader(raw))
	pd.UseNumber()
	if err := pd.Decode(&players); err != nil {
		return nil, fmt.Errorf("%w: players: %v", ErrMalformedResponse, err)
	}
	if len(players) == 0 {
		if clarified {
			return nil, ErrStillEmpty
		}
		return nil, ErrEmptyResult
	}
	return &Extraction{Source: strings.TrimSpace(doc.Source), Players: players}, nil
}

// parseValueMap decodes `[{"name": "...", "<field>": n}, ...]` into name → n.
// Entries with a missing or non-numeric value are skipped.
func parseValueMap(body []byte, field string) (map[string]float64, error) {
	var items []map[string]any
	if err := json.Unmarshal([]byte(stripFences(string(body))), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	out := make(map[string]float64, len(items))
	for _, it := range items {
		name, _ := it["name"].(string)
		v, ok := it[field].(float64)
		if name == "" || !ok {
			continue
		}
		out[name] = v
	}
	return out, nil
}

func parseTrade(body []byte) (TradeAnalysis, error) {
	var ta TradeAnalysis
	if err := json.Unmarshal([]byte(stripFences(string(body))), &ta); err != nil {
		return TradeAnalysis{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if ta.Grade == "" {
		return TradeAnalysis{}, ErrMalformedResponse
	}
	return ta, nil
}
