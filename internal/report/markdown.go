package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/giantswarm/load-testing/internal/summary"
)

// WriteMarkdown writes a Markdown report suitable for a pull request comment.
func WriteMarkdown(w io.Writer, doc *summary.Document) error {
	if _, err := fmt.Fprintf(w, "## Load test: %s %s\n\n", doc.Suite, verdict(doc.Passed)); err != nil {
		return err
	}
	if !doc.StartedAt.IsZero() {
		if _, err := fmt.Fprintf(w, "**Run at:** %s\n\n", doc.StartedAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}

	passed, failed := doc.Counts()
	if _, err := fmt.Fprintf(w, "**Thresholds:** %d passed, %d failed over %d iterations in %.1fs\n\n",
		passed, failed, doc.Iterations, doc.DurationSeconds); err != nil {
		return err
	}

	if len(doc.Thresholds) == 0 {
		_, err := fmt.Fprintln(w, "_No thresholds evaluated._")
		return err
	}

	if _, err := fmt.Fprintln(w, "| Threshold | Expression | Observed | Result |"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "|-----------|------------|----------|--------|"); err != nil {
		return err
	}
	for _, t := range doc.Thresholds {
		if _, err := fmt.Fprintf(w, "| `%s` | `%s` | %s | %s |\n",
			escapePipes(t.Key), escapePipes(t.Expression), formatObserved(t), verdict(t.Passed)); err != nil {
			return err
		}
	}
	return nil
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
