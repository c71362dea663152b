package analysis

import (
	"context"
	"unicode/utf8"

	"github.com/nikogura/resume-analyzer/pkg/scorer"
)

// Status strings carried in analysis_metadata.status.
const (
	StatusModelComplete = "ai_analysis_complete"
	StatusFallback      = "fallback_analysis_used"
	StatusPlaceholder   = "placeholder_analysis_emergency_fallback"

	// FailureReasonUnparseable is the failure_reason of a fallback result.
	FailureReasonUnparseable = "ai_response_parsing_failed"

	fallbackModelName    = "fallback_analysis"
	placeholderModelName = "placeholder_fallback"
)

// Fallback is the fixed analysis used when a model reply cannot be parsed.
func Fallback(fileKey string, textLength int) (result scorer.AnalysisResult) {
	result = scorer.AnalysisResult{
		OverallScore: 65,
		SectionScores: map[string]int{
			scorer.SectionContact:    60,
			scorer.SectionSummary:    65,
			scorer.SectionExperience: 70,
			scorer.SectionEducation:  65,
			scorer.SectionSkills:     60,
			scorer.SectionFormatting: 65,
		},
		ATSCompatibility: 60,
		ContentQuality:   65,
		KeywordDensity:   55,
		Recommendations: []string{
			"Consider improving resume formatting for better ATS compatibility",
			"Add quantified achievements with specific numbers and metrics",
			"Include relevant industry keywords for your target role",
			"Enhance professional summary with clear value proposition",
			"Review contact information for completeness and professionalism",
		},
		KeywordsFound: []string{"experience", "professional", "skills", "education"},
		ImprovementAreas: []string{
			"ATS optimization",
			"Quantified achievements",
			"Keyword optimization",
			"Professional formatting",
		},
		Strengths: []string{
			"Contains basic resume sections",
			"Professional document structure",
		},
		Metadata: scorer.AnalysisMetadata{
			Source:             scorer.SourceFallback,
			TextLengthAnalyzed: textLength,
			Status:             StatusFallback,
			SchemaVersion:      scorer.SchemaVersion,
			ModelUsed:          fallbackModelName,
			FileKey:            fileKey,
			FailureReason:      FailureReasonUnparseable,
		},
	}
	return result
}

// Placeholder is the last-resort analysis when every other tier failed.
func Placeholder(fileKey string, textLength int) (result scorer.AnalysisResult) {
	sections := make(map[string]int, len(scorer.SectionNames()))
	for _, name := range scorer.SectionNames() {
		sections[name] = 50
	}

	result = scorer.AnalysisResult{
		OverallScore:     50,
		SectionScores:    sections,
		ATSCompatibility: 50,
		ContentQuality:   50,
		KeywordDensity:   50,
		Recommendations: []string{
			"Resume analysis could not be completed - please review manually",
			"Ensure resume contains standard sections: contact, summary, experience, education, skills",
			"Use clear formatting and professional language",
		},
		KeywordsFound:    []string{},
		ImprovementAreas: []string{"Manual review required"},
		Strengths:        []string{},
		Metadata: scorer.AnalysisMetadata{
			Source:             scorer.SourcePlaceholder,
			TextLengthAnalyzed: textLength,
			Status:             StatusPlaceholder,
			SchemaVersion:      scorer.SchemaVersion,
			ModelUsed:          placeholderModelName,
			FileKey:            fileKey,
		},
	}
	return result
}

// PlaceholderTier always succeeds.
type PlaceholderTier struct{}

// Name returns the tier name.
func (PlaceholderTier) Name() (name string) {
	name = scorer.SourcePlaceholder
	return name
}

// Produce returns the placeholder analysis.
func (PlaceholderTier) Produce(_ context.Context, text, fileKey string) (result scorer.AnalysisResult, err error) {
	result = Placeholder(fileKey, utf8.RuneCountInString(text))
	return result, err
}
