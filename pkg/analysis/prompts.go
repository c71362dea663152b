package analysis

import (
	"fmt"
	"strings"

	"github.com/nikogura/resume-analyzer/pkg/scorer"
)

// SystemPrompt is the fixed system instruction for the model tier.
const SystemPrompt = "You are an expert ATS and resume optimization specialist. " +
	"Provide detailed, structured analysis of resumes with specific scores and actionable recommendations."

// BuildPrompt renders the user prompt: the requested JSON shape, the rubric, then the resume text.
func BuildPrompt(rubric scorer.Rubric, text string) (prompt string) {
	var b strings.Builder

	b.WriteString("Analyze the following resume text and provide a comprehensive evaluation. ")
	b.WriteString("Return your analysis as a JSON object with the following structure:\n\n")

	b.WriteString("{\n")
	b.WriteString("    \"overall_score\": <number 0-100>,\n")
	b.WriteString("    \"section_scores\": {\n")
	for i, section := range rubric.Sections {
		sep := ","
		if i == len(rubric.Sections)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "        %q: <number 0-100>%s\n", section.Name, sep)
	}
	b.WriteString("    },\n")
	b.WriteString("    \"ats_compatibility\": <number 0-100>,\n")
	b.WriteString("    \"content_quality\": <number 0-100>,\n")
	b.WriteString("    \"keyword_density\": <number 0-100>,\n")
	b.WriteString("    \"recommendations\": [<array of specific improvement suggestions>],\n")
	b.WriteString("    \"keywords_found\": [<array of relevant keywords identified>],\n")
	b.WriteString("    \"improvement_areas\": [<array of specific areas needing work>],\n")
	b.WriteString("    \"strengths\": [<array of resume strengths>]\n")
	b.WriteString("}\n\n")

	b.WriteString("SCORING CRITERIA:\n\n")
	for _, section := range rubric.Sections {
		fmt.Fprintf(&b, "%s (Weight: %d%%):\n", scorer.DisplayName(section.Name), section.WeightPercent)
		if len(section.Criteria) > 0 {
			fmt.Fprintf(&b, "Criteria: %s\n", strings.Join(section.Criteria, ", "))
		}
		for _, point := range section.PointGuide {
			fmt.Fprintf(&b, "- %s (%d points)\n", point.Description, point.Points)
		}
		b.WriteString("\n")
	}

	b.WriteString("ATS Compatibility:\n")
	for _, factor := range rubric.ATSFactors {
		fmt.Fprintf(&b, "- %s\n", factor)
	}
	b.WriteString("\n")

	b.WriteString("Content Quality:\n")
	for _, factor := range rubric.ContentQualityFactors {
		fmt.Fprintf(&b, "- %s\n", factor)
	}
	b.WriteString("\n")

	b.WriteString("Provide specific, actionable recommendations for improvement. ")
	b.WriteString("Focus on concrete steps the candidate can take to enhance their resume's effectiveness.\n\n")

	b.WriteString("RESUME TEXT TO ANALYZE:\n\n")
	b.WriteString(text)
	b.WriteString("\n\nRemember to return ONLY valid JSON format as specified above.\n")

	prompt = b.String()
	return prompt
}
