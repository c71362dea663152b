package analysis

import (
	"strings"
	"testing"

	"github.com/nikogura/resume-analyzer/pkg/scorer"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(scorer.DefaultRubric(), "RESUME BODY HERE")

	expected := []string{
		`"contact_information": <number 0-100>,`,
		`"formatting": <number 0-100>` + "\n",
		"Contact Information (Weight: 15%):\nCriteria: Professional email address, Phone number present, LinkedIn profile, Location information\n- Professional email address present (20 points)",
		"Criteria: Action verbs usage, Quantified results, Relevant experience, Career progression",
		"Criteria: ATS-friendly format, Consistent styling, Appropriate length, Clean structure",
		"- Phone number included (20 points)",
		"Professional Summary (Weight: 20%):",
		"Work Experience (Weight: 35%):",
		"- Quantified results and achievements with numbers/percentages (30 points)",
		"Education (Weight: 15%):",
		"Skills (Weight: 10%):",
		"Formatting (Weight: 5%):",
		"- Appropriate length (1-2 pages) (15 points)",
		"ATS Compatibility:\n- Standard section headings used",
		"Content Quality:\n- Achievement quantification with specific metrics",
		"RESUME TEXT TO ANALYZE:\n\nRESUME BODY HERE",
	}

	for _, want := range expected {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}

	if !strings.HasSuffix(prompt, "Remember to return ONLY valid JSON format as specified above.\n") {
		t.Error("Expected prompt to end with the JSON reminder")
	}

	for _, section := range scorer.DefaultRubric().Sections {
		for _, criterion := range section.Criteria {
			if !strings.Contains(prompt, criterion) {
				t.Errorf("Expected criterion %q for %s in prompt", criterion, section.Name)
			}
		}
	}

	// Sections appear in rubric order.
	last := -1
	for _, name := range scorer.SectionNames() {
		idx := strings.Index(prompt, scorer.DisplayName(name)+" (Weight:")
		if idx <= last {
			t.Errorf("Section %s out of order", name)
		}
		last = idx
	}
}
