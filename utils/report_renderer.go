package utils

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/capscan/capscan/capsule_analyzer/models"
	"github.com/capscan/capscan/constants/lipgloss"
)

// RenderCapsule prints a human-readable capsule report. The body is built
// as markdown and highlighted through chroma with the configured theme.
func RenderCapsule(w io.Writer, capsule *models.Capsule, theme string) error {
	header := fmt.Sprintf("%s  [%s]  %s", capsule.File, capsule.Language, shortHash(capsule.ContentHash))
	fmt.Fprintln(w, lipgloss.BoxStyle.Render(header))

	markdown := buildCapsuleMarkdown(capsule)
	if err := quick.Highlight(w, markdown, "markdown", "terminal256", theme); err != nil {
		// Highlighting is cosmetic; fall back to plain output.
		fmt.Fprint(w, markdown)
	}
	return nil
}

func buildCapsuleMarkdown(capsule *models.Capsule) string {
	var b strings.Builder

	if len(capsule.StructuralFacts) > 0 {
		b.WriteString("## Structural facts\n\n")
		for _, fact := range capsule.StructuralFacts {
			fmt.Fprintf(&b, "- %s", fact.Text)
			if len(fact.Evidence) > 0 {
				fmt.Fprintf(&b, " `[%s]`", strings.Join(fact.Evidence, ", "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(capsule.APISymbols) > 0 {
		b.WriteString("## API symbols\n\n")
		for _, symbol := range capsule.APISymbols {
			visibility := ""
			if symbol.Exported {
				visibility = " (exported)"
			}
			fmt.Fprintf(&b, "- **%s** %s%s", symbol.Kind, symbol.Name, visibility)
			if symbol.Evidence != "" {
				fmt.Fprintf(&b, " `[%s]`", symbol.Evidence)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(capsule.Dependencies) > 0 {
		b.WriteString("## Dependencies\n\n")
		for _, dep := range capsule.Dependencies {
			fmt.Fprintf(&b, "- %s (x%d)\n", dep.Module, dep.Count)
		}
		b.WriteString("\n")
	}

	if len(capsule.InboundSample) > 0 {
		b.WriteString("## Inbound references (sample)\n\n")
		for _, ref := range capsule.InboundSample {
			fmt.Fprintf(&b, "- %s (%d occurrence(s))\n", ref.File, ref.Count)
		}
		b.WriteString("\n")
	}

	if summary, ok := capsule.NarrativeSummary["en"]; ok {
		b.WriteString("## Summary\n\n")
		b.WriteString(summary)
		b.WriteString("\n\n")
	}

	if len(capsule.Inferences) > 0 {
		b.WriteString("## Inferences\n\n")
		for _, inf := range capsule.Inferences {
			fmt.Fprintf(&b, "- %s _(confidence %.2f)_", inf.Text, inf.Confidence)
			if inf.Evidence != "" {
				fmt.Fprintf(&b, " `[%s]`", inf.Evidence)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(capsule.Recommendations) > 0 {
		b.WriteString("## Recommendations\n\n")
		for _, rec := range capsule.Recommendations {
			fmt.Fprintf(&b, "- %s", rec.Text)
			if rec.Priority != "" {
				fmt.Fprintf(&b, " _[%s]_", rec.Priority)
			}
			if rec.Reason != "" {
				fmt.Fprintf(&b, "\n  - %s", rec.Reason)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(capsule.EvidenceIndex) > 0 {
		b.WriteString("## Evidence\n\n")
		for _, id := range sortedEvidenceIDs(capsule.EvidenceIndex) {
			ev := capsule.EvidenceIndex[id]
			fmt.Fprintf(&b, "- `%s` %s:%d-%d\n", id, ev.File, ev.StartLine, ev.EndLine)
		}
	}

	return b.String()
}

// sortedEvidenceIDs orders ids numerically (e1, e2, ... e10) rather than
// lexically.
func sortedEvidenceIDs(index map[string]models.Evidence) []string {
	ids := make([]string, 0, len(index))
	for i := 1; len(ids) < len(index); i++ {
		id := fmt.Sprintf("e%d", i)
		if _, ok := index[id]; ok {
			ids = append(ids, id)
			continue
		}
		// Non-sequential index; fall back to map order for the rest.
		for k := range index {
			if !contains(ids, k) {
				ids = append(ids, k)
			}
		}
		break
	}
	return ids
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
