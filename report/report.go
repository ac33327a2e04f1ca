package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qualifire-dev/rogue/types"
)

// Report is the renderable view of one finished evaluation.
type Report struct {
	// Results are the per-scenario verdicts to render.
	Results types.EvaluationResults

	// Summary is an optional natural-language summary placed at the top.
	Summary string

	// GeneratedAt is the report timestamp. Zero means time.Now().
	GeneratedAt time.Time
}

// Write renders the report as Markdown.
func (r Report) Write(w io.Writer) error {
	generated := r.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}

	passed, failed := 0, 0
	for _, res := range r.Results.Results {
		if res.Passed {
			passed++
		} else {
			failed++
		}
	}

	var sb strings.Builder
	sb.WriteString("# Rogue Evaluation Report\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", generated.Format(time.RFC3339))

	if r.Summary != "" {
		sb.WriteString("## Summary\n\n")
		sb.WriteString(strings.TrimSpace(r.Summary))
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Overall Results\n\n")
	fmt.Fprintf(&sb, "- Scenarios: %d\n", r.Results.Len())
	fmt.Fprintf(&sb, "- Passed: %d\n", passed)
	fmt.Fprintf(&sb, "- Failed: %d\n\n", failed)

	sb.WriteString("## Scenario Results\n\n")
	for i, res := range r.Results.Results {
		fmt.Fprintf(&sb, "### %d. %s - %s\n\n", i+1, scenarioTitle(res.Scenario), verdict(res.Passed))

		if res.Scenario.ExpectedOutcome != "" {
			fmt.Fprintf(&sb, "**Expected outcome:** %s\n\n", res.Scenario.ExpectedOutcome)
		}

		for j, conv := range res.Conversations {
			fmt.Fprintf(&sb, "- Conversation %d: %s - %s\n", j+1, verdict(conv.Passed), oneLine(conv.Reason))
		}
		if len(res.Conversations) > 0 {
			sb.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteFile renders the report to path, creating parent directories.
func (r Report) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	if err := r.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func verdict(passed bool) string {
	if passed {
		return "PASSED"
	}
	return "FAILED"
}

// scenarioTitle is the first line of the scenario text, truncated so
// headings stay readable.
func scenarioTitle(sc types.Scenario) string {
	title := sc.Scenario
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	title = strings.TrimSpace(title)
	if len(title) > 120 {
		title = title[:117] + "..."
	}
	return title
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
