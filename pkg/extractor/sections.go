package extractor

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Section types reported by DetectSections.
const (
	SectionContact        = "contact"
	SectionSummary        = "summary"
	SectionExperience     = "experience"
	SectionEducation      = "education"
	SectionSkills         = "skills"
	SectionCertifications = "certifications"
)

// Section is one marker match in the document.
type Section struct {
	Type        string `json:"type"`
	Pattern     string `json:"pattern"`
	Position    int    `json:"position"`
	LineNumber  int    `json:"line_number"`
	MatchedText string `json:"matched_text"`
}

type sectionMarkers struct {
	sectionType string
	patterns    []*regexp.Regexp
}

// Order matters: types are scanned in this order and patterns in priority order.
//
//nolint:gochecknoglobals // compiled once, read-only
var sectionTable = []sectionMarkers{
	{SectionContact, compileAll(`contact\s+information`, `personal\s+information`, `contact\s+details`, `phone.*email`, `email.*phone`)},
	{SectionSummary, compileAll(`professional\s+summary`, `career\s+summary`, `executive\s+summary`, `profile`, `objective`, `summary\s+of\s+qualifications`)},
	{SectionExperience, compileAll(`work\s+experience`, `professional\s+experience`, `employment\s+history`, `career\s+history`, `experience`)},
	{SectionEducation, compileAll(`education`, `academic\s+background`, `educational\s+qualifications`)},
	{SectionSkills, compileAll(`technical\s+skills`, `core\s+competencies`, `skills\s+and\s+abilities`, `key\s+skills`, `skills`)},
	{SectionCertifications, compileAll(`certifications`, `certificates`, `professional\s+certifications`, `licenses`)},
}

func compileAll(exprs ...string) (patterns []*regexp.Regexp) {
	patterns = make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		patterns = append(patterns, regexp.MustCompile(expr))
	}
	return patterns
}

// DetectSections finds every section marker in text, ordered by position.
// Positions are character offsets into the lower-cased text.
func DetectSections(text string) (sections []Section) {
	sections = []Section{}
	if text == "" {
		return sections
	}

	lower := strings.ToLower(text)

	for _, entry := range sectionTable {
		for _, pattern := range entry.patterns {
			for _, loc := range pattern.FindAllStringIndex(lower, -1) {
				prefix := lower[:loc[0]]
				sections = append(sections, Section{
					Type:        entry.sectionType,
					Pattern:     pattern.String(),
					Position:    utf8.RuneCountInString(prefix),
					LineNumber:  strings.Count(prefix, "\n") + 1,
					MatchedText: lower[loc[0]:loc[1]],
				})
			}
		}
	}

	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Position < sections[j].Position
	})

	return sections
}
