package agent

import (
	"fmt"
	"strings"

	"github.com/sells-group/meeting-agent/internal/model"
)

// FormatReport renders a pipeline result for terminal output.
func FormatReport(res *model.PipelineResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s\n", res.RunID)
	if res.Partial {
		b.WriteString("NOTE: extraction was partial; some fields failed validation\n")
	}
	b.WriteString("\n")

	if len(res.Resolved) > 0 {
		fmt.Fprintf(&b, "Resolved entities (%d):\n", len(res.Resolved))
		for _, r := range res.Resolved {
			fmt.Fprintf(&b, "  [%s] %s (%s)\n", r.Type, r.Name, r.ID)
		}
		b.WriteString("\n")
	}

	if len(res.NeedsReview) > 0 {
		fmt.Fprintf(&b, "Needs review (%d):\n", len(res.NeedsReview))
		for _, item := range res.NeedsReview {
			fmt.Fprintf(&b, "  %s  %q\n", item.Key, item.Mention.Text)
			for _, c := range item.Candidates {
				fmt.Fprintf(&b, "    - %s %s (score %.0f)\n", c.Record.ID, c.Record.Name, c.Score)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Action plan (%d):\n", len(res.Plan))
	for _, a := range res.Plan {
		marker := " "
		switch a.Status {
		case model.ActionBlocked:
			marker = "!"
		case model.ActionUnmappedStatus:
			marker = "?"
		}
		fmt.Fprintf(&b, "  %s %2d. [%s] %s\n", marker, a.ID, a.Kind, a.Description)
	}

	if len(res.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	return b.String()
}
