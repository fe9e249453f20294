package oracle

import (
	"context"
	"fmt"
	"os"
)

// FileExtractor serves extractions from a JSON document already in the
// oracle's response shape. Request content is ignored; the clarification
// flag still selects the empty-result error.
type FileExtractor struct {
	Path string
}

// Extract implements Extractor.
func (f FileExtractor) Extract(ctx context.Context, req Request) (*Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read extraction file: %w", err)
	}
	return ParseExtraction(data, req.Clarification != "")
}
