package report

import (
	"fmt"

	"github.com/segmentio/encoding/json"

	"github.com/giantswarm/load-testing/internal/summary"
)

// MarshalJSON renders the summary document as indented JSON.
func MarshalJSON(doc *summary.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}
	return data, nil
}

// UnmarshalJSON parses a summary document written by MarshalJSON.
func UnmarshalJSON(data []byte) (*summary.Document, error) {
	var doc summary.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return &doc, nil
}
