package analysis

import (
	"strconv"
	"strings"

	"github.com/nikogura/resume-analyzer/pkg/llm"
	"github.com/nikogura/resume-analyzer/pkg/scorer"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// ErrUnparseableResponse means neither the reply nor any {...} span inside it was a JSON object.
var ErrUnparseableResponse = errors.New("model response is not a JSON object")

// ParseResponse turns a model reply into a normalized result. The reply is tried as strict
// JSON first, then the span from the first '{' to the last '}' is tried.
func ParseResponse(reply string, rubric scorer.Rubric) (result scorer.AnalysisResult, err error) {
	cleaned := strings.TrimSpace(llm.StripMarkdownCodeFences(strings.TrimSpace(reply)))

	if gjson.Valid(cleaned) {
		doc := gjson.Parse(cleaned)
		if !doc.IsObject() {
			err = errors.Wrapf(ErrUnparseableResponse, "got JSON %s", doc.Type)
			return result, err
		}
		result = normalize(doc, rubric)
		return result, err
	}

	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start >= 0 && end > start {
		span := cleaned[start : end+1]
		if gjson.Valid(span) {
			result = normalize(gjson.Parse(span), rubric)
			return result, err
		}
	}

	err = ErrUnparseableResponse
	return result, err
}

// normalize coerces every score and list in doc. Absent or non-numeric scores become 0; an
// overall score of 0 is recomputed from the sections when any section is above 0.
func normalize(doc gjson.Result, rubric scorer.Rubric) (result scorer.AnalysisResult) {
	sections := make(map[string]int, len(rubric.Sections))
	rawSections := doc.Get("section_scores")
	for _, section := range rubric.Sections {
		score := 0
		if rawSections.IsObject() {
			score = NormalizeScore(rawSections.Get(section.Name))
		}
		sections[section.Name] = score
	}

	overall := NormalizeScore(doc.Get("overall_score"))
	if overall == 0 {
		for _, score := range sections {
			if score > 0 {
				overall = rubric.WeightedRound(sections)
				break
			}
		}
	}

	result = scorer.AnalysisResult{
		OverallScore:     overall,
		SectionScores:    sections,
		ATSCompatibility: NormalizeScore(doc.Get("ats_compatibility")),
		ContentQuality:   NormalizeScore(doc.Get("content_quality")),
		KeywordDensity:   NormalizeScore(doc.Get("keyword_density")),
		Recommendations:  stringList(doc.Get("recommendations")),
		KeywordsFound:    stringList(doc.Get("keywords_found")),
		ImprovementAreas: stringList(doc.Get("improvement_areas")),
		Strengths:        stringList(doc.Get("strengths")),
		Metadata: scorer.AnalysisMetadata{
			Source:        scorer.SourceModel,
			Status:        StatusModelComplete,
			SchemaVersion: scorer.SchemaVersion,
		},
	}
	return result
}

// NormalizeScore coerces a JSON value to an integer score in [0,100]. Null, absent and
// non-numeric values give 0; numeric strings are parsed; booleans count as 1 and 0.
func NormalizeScore(v gjson.Result) (score int) {
	switch v.Type {
	case gjson.Number:
		score = scorer.ClampScore(v.Float())
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err == nil {
			score = scorer.ClampScore(f)
		}
	case gjson.True:
		score = 1
	case gjson.Null, gjson.False, gjson.JSON:
		score = 0
	}
	return score
}

// stringList returns the array elements as strings, or an empty list for a non-array value.
func stringList(v gjson.Result) (list []string) {
	list = []string{}
	if !v.IsArray() {
		return list
	}
	for _, item := range v.Array() {
		list = append(list, item.String())
	}
	return list
}
