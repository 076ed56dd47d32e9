// Package report renders summary documents: JUnit XML for CI, a text table
// for the terminal, JSON for machines and Markdown for pull requests.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/segmentio/encoding/json"

	"github.com/giantswarm/load-testing/internal/summary"
	"github.com/giantswarm/load-testing/internal/threshold"
)

// Artifact file names inside a run directory.
const (
	SummaryFile    = "summary.json"
	JUnitFile      = "summary-junit.xml"
	MarkdownFile   = "summary.md"
	ThresholdsFile = "thresholds.json"
)

// Artifacts lists the files written for a run.
type Artifacts struct {
	Dir        string
	Summary    string
	JUnit      string
	Markdown   string
	Thresholds string
}

// WriteArtifacts writes every report of a run into dir/<run id>. The compiled
// threshold map is written only when given.
func WriteArtifacts(dir string, doc *summary.Document, compiled *threshold.Map, classname string) (*Artifacts, error) {
	runDir := filepath.Join(dir, doc.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	a := &Artifacts{
		Dir:        runDir,
		Summary:    filepath.Join(runDir, SummaryFile),
		JUnit:      filepath.Join(runDir, JUnitFile),
		Markdown:   filepath.Join(runDir, MarkdownFile),
	}

	data, err := MarshalJSON(doc)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(a.Summary, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}

	var junit bytes.Buffer
	if err := WriteJUnit(&junit, doc, classname); err != nil {
		return nil, err
	}
	if err := os.WriteFile(a.JUnit, junit.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write JUnit report: %w", err)
	}

	var md bytes.Buffer
	if err := WriteMarkdown(&md, doc); err != nil {
		return nil, err
	}
	if err := os.WriteFile(a.Markdown, md.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown report: %w", err)
	}

	if compiled == nil {
		return a, nil
	}
	a.Thresholds = filepath.Join(runDir, ThresholdsFile)
	thresholds, err := json.MarshalIndent(compiled, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal thresholds: %w", err)
	}
	if err := os.WriteFile(a.Thresholds, thresholds, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write thresholds: %w", err)
	}

	return a, nil
}

// ReadSummary loads summary.json from a run directory.
func ReadSummary(runDir string) (*summary.Document, error) {
	data, err := os.ReadFile(filepath.Join(runDir, SummaryFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	return UnmarshalJSON(data)
}
