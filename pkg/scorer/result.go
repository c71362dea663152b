package scorer

import (
	"math"
	"time"
)

// Analysis sources.
const (
	SourceModel       = "model"
	SourceRuleBased   = "rule-based"
	SourceFallback    = "fallback"
	SourcePlaceholder = "placeholder"
)

// SchemaVersion versions the AnalysisResult JSON shape.
const SchemaVersion = "1.0"

// AnalysisResult is the scored outcome for one resume.
type AnalysisResult struct {
	OverallScore     int              `json:"overall_score"`
	SectionScores    map[string]int   `json:"section_scores"`
	ATSCompatibility int              `json:"ats_compatibility"`
	ContentQuality   int              `json:"content_quality"`
	KeywordDensity   int              `json:"keyword_density"`
	Recommendations  []string         `json:"recommendations"`
	KeywordsFound    []string         `json:"keywords_found"`
	ImprovementAreas []string         `json:"improvement_areas"`
	Strengths        []string         `json:"strengths"`
	Metadata         AnalysisMetadata `json:"analysis_metadata"`
}

// AnalysisMetadata records how a result was produced.
type AnalysisMetadata struct {
	Source             string    `json:"analysis_source"`
	Timestamp          time.Time `json:"timestamp"`
	DurationSeconds    float64   `json:"duration_seconds"`
	TextLengthAnalyzed int       `json:"text_length_analyzed"`
	Status             string    `json:"status"`
	SchemaVersion      string    `json:"schema_version"`
	ModelUsed          string    `json:"model_used"`
	FileKey            string    `json:"file_key"`
	FailureReason      string    `json:"failure_reason,omitempty"`
}

// ClampScore rounds to the nearest integer, halves away from zero, and clamps to [0,100].
// NaN maps to 0.
func ClampScore(v float64) (score int) {
	if math.IsNaN(v) {
		return score
	}
	r := math.Round(v)
	switch {
	case r < 0:
		score = 0
	case r > 100:
		score = 100
	default:
		score = int(r)
	}
	return score
}
