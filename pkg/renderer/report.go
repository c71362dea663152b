// Package renderer turns an analysis into a human-readable report.
package renderer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nikogura/resume-analyzer/pkg/scorer"
)

// Markdown renders result as a markdown report. title is usually the file name.
func Markdown(title string, result scorer.AnalysisResult) (md string) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Resume Analysis: %s\n\n", title)
	fmt.Fprintf(&b, "**Overall score:** %d/100\n\n", result.OverallScore)

	b.WriteString("| Measure | Score |\n|---|---|\n")
	fmt.Fprintf(&b, "| ATS compatibility | %d |\n", result.ATSCompatibility)
	fmt.Fprintf(&b, "| Content quality | %d |\n", result.ContentQuality)
	fmt.Fprintf(&b, "| Keyword density | %d |\n\n", result.KeywordDensity)

	b.WriteString("## Sections\n\n| Section | Score |\n|---|---|\n")
	for _, name := range sectionOrder(result.SectionScores) {
		fmt.Fprintf(&b, "| %s | %d |\n", scorer.DisplayName(name), result.SectionScores[name])
	}
	b.WriteString("\n")

	writeList(&b, "Strengths", result.Strengths)
	writeList(&b, "Improvement Areas", result.ImprovementAreas)
	writeList(&b, "Recommendations", result.Recommendations)
	writeList(&b, "Keywords Found", result.KeywordsFound)

	meta := result.Metadata
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "Analysis source: %s", meta.Source)
	if meta.ModelUsed != "" {
		fmt.Fprintf(&b, " (%s)", meta.ModelUsed)
	}
	if !meta.Timestamp.IsZero() {
		fmt.Fprintf(&b, ", %s", meta.Timestamp.UTC().Format("2006-01-02 15:04 MST"))
	}
	b.WriteString("\n")

	md = b.String()
	return md
}

// sectionOrder lists the known sections first, then anything else alphabetically.
func sectionOrder(scores map[string]int) (names []string) {
	known := map[string]bool{}
	for _, name := range scorer.SectionNames() {
		known[name] = true
		if _, ok := scores[name]; ok {
			names = append(names, name)
		}
	}

	var extra []string
	for name := range scores {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	names = append(names, extra...)
	return names
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
