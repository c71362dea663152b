package scorer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Keywords holds the term lists the rule-based scorer looks for.
type Keywords struct {
	ProfileSites         []string
	Location             []string
	SummaryIndicators    []string
	Professional         []string
	ExperienceIndicators []string
	ActionVerbs          []string
	EducationIndicators  []string
	Honors               []string
	SkillIndicators      []string
	Technical            []string
	SectionHeaders       []string
}

// DefaultKeywords returns the standard keyword lists.
func DefaultKeywords() (k Keywords) {
	k = Keywords{
		ProfileSites:         []string{"linkedin", "github"},
		Location:             []string{"address", "location", "city", "state"},
		SummaryIndicators:    []string{"summary", "profile", "objective", "about"},
		Professional:         []string{"experienced", "professional", "skilled", "expert", "leader", "manager"},
		ExperienceIndicators: []string{"experience", "employment", "work history", "career", "professional experience"},
		ActionVerbs:          []string{"managed", "developed", "created", "implemented", "led", "achieved", "improved", "designed"},
		EducationIndicators:  []string{"education", "degree", "university", "college", "bachelor", "master", "phd", "certification"},
		Honors:               []string{"gpa", "honors", "cum laude", "magna cum laude", "summa cum laude"},
		SkillIndicators:      []string{"skills", "technical skills", "competencies", "technologies", "tools"},
		Technical:            []string{"python", "java", "javascript", "sql", "aws", "docker", "git", "linux", "windows", "excel"},
		SectionHeaders:       []string{"experience", "education", "skills", "summary"},
	}
	return k
}

//nolint:gochecknoglobals // compiled once, read-only
var (
	emailPattern      = regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)
	phonePattern      = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	quantifiedPattern = regexp.MustCompile(`\d+%|\d+\+|\$\d+|\d+ years?`)
	yearPattern       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	resultPattern     = regexp.MustCompile(`\d+%|\$\d+|increased|decreased|improved|reduced`)
	graduationPattern = regexp.MustCompile(`\b(19|20)\d{2}\b.*?(degree|graduated|bachelor|master)`)
	formattingSymbols = []string{"•", "*", "-"}
)

const (
	ruleBasedModelName = "rule_based_analyzer"
	ruleBasedStatus    = "rule_based_analysis_complete"
)

// Scorer is the deterministic keyword and pattern analyzer.
type Scorer struct {
	rubric   Rubric
	keywords Keywords
}

// NewScorer creates a scorer over the given rubric and keyword lists.
func NewScorer(rubric Rubric, keywords Keywords) (scorer *Scorer) {
	scorer = &Scorer{
		rubric:   rubric,
		keywords: keywords,
	}
	return scorer
}

// Analyze scores text. The result carries no timing metadata, so equal input gives an equal result.
func (s *Scorer) Analyze(text, fileKey string) (result AnalysisResult) {
	lower := strings.ToLower(text)

	scores := map[string]int{
		SectionContact:    s.contactScore(text, lower),
		SectionSummary:    s.summaryScore(text, lower),
		SectionExperience: s.experienceScore(text, lower),
		SectionEducation:  s.educationScore(lower),
		SectionSkills:     s.skillsScore(lower),
		SectionFormatting: s.formattingScore(text, lower),
	}

	found := []string{}
	for _, kw := range append(append([]string{}, s.keywords.Technical...), s.keywords.Professional...) {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}

	keywordDensity := 0
	if words := len(strings.Fields(text)); words > 0 {
		keywordDensity = len(found) * 1000 / words
		if keywordDensity > 100 {
			keywordDensity = 100
		}
	}

	recommendations := []string{}
	improvementAreas := []string{}
	strengths := []string{}
	for _, section := range SectionNames() {
		score := scores[section]
		if score < 70 {
			recommendations = append(recommendations, recommendationFor(section))
			improvementAreas = append(improvementAreas, DisplayName(section))
		}
		if score >= 80 {
			strengths = append(strengths, DisplayName(section))
		}
	}

	result = AnalysisResult{
		OverallScore:     s.rubric.WeightedFloor(scores),
		SectionScores:    scores,
		ATSCompatibility: (scores[SectionFormatting] + scores[SectionContact]) / 2,
		ContentQuality:   (scores[SectionExperience] + scores[SectionSummary]) / 2,
		KeywordDensity:   keywordDensity,
		Recommendations:  recommendations,
		KeywordsFound:    found,
		ImprovementAreas: improvementAreas,
		Strengths:        strengths,
		Metadata: AnalysisMetadata{
			Source:             SourceRuleBased,
			TextLengthAnalyzed: utf8.RuneCountInString(text),
			Status:             ruleBasedStatus,
			SchemaVersion:      SchemaVersion,
			ModelUsed:          ruleBasedModelName,
			FileKey:            fileKey,
		},
	}

	return result
}

func (s *Scorer) contactScore(text, lower string) (score int) {
	if emailPattern.MatchString(text) {
		score += 25
	}
	if phonePattern.MatchString(text) {
		score += 20
	}
	if containsAny(lower, s.keywords.ProfileSites) {
		score += 25
	}
	if containsAny(lower, s.keywords.Location) {
		score += 15
	}
	score = capScore(score)
	return score
}

func (s *Scorer) summaryScore(text, lower string) (score int) {
	if containsAny(lower, s.keywords.SummaryIndicators) {
		score += 30
	}
	if quantifiedPattern.MatchString(text) {
		score += 25
	}
	if containsAny(lower, s.keywords.Professional) {
		score += 25
	}
	score = capScore(score)
	return score
}

func (s *Scorer) experienceScore(text, lower string) (score int) {
	if containsAny(lower, s.keywords.ExperienceIndicators) {
		score += 25
	}
	if len(yearPattern.FindAllString(text, -1)) >= 2 {
		score += 25
	}
	score += minInt(30, countContained(lower, s.keywords.ActionVerbs)*5)
	if resultPattern.MatchString(lower) {
		score += 20
	}
	score = capScore(score)
	return score
}

func (s *Scorer) educationScore(lower string) (score int) {
	if containsAny(lower, s.keywords.EducationIndicators) {
		score += 40
	}
	if graduationPattern.MatchString(lower) {
		score += 30
	}
	if containsAny(lower, s.keywords.Honors) {
		score += 30
	}
	score = capScore(score)
	return score
}

func (s *Scorer) skillsScore(lower string) (score int) {
	if containsAny(lower, s.keywords.SkillIndicators) {
		score += 30
	}
	score += minInt(50, countContained(lower, s.keywords.Technical)*10)
	score = capScore(score)
	return score
}

func (s *Scorer) formattingScore(text, lower string) (score int) {
	length := utf8.RuneCountInString(text)
	switch {
	case length >= 1000 && length <= 4000:
		score += 25
	case length > 0:
		score += 15
	}
	if len(strings.Split(text, "\n")) > 10 {
		score += 25
	}
	if containsAny(text, formattingSymbols) {
		score += 25
	}
	score += minInt(25, countContained(lower, s.keywords.SectionHeaders)*8)
	score = capScore(score)
	return score
}

func recommendationFor(section string) (msg string) {
	switch section {
	case SectionContact:
		msg = "Add complete contact information including email, phone, and professional profile links"
	case SectionSummary:
		msg = "Include a compelling professional summary with quantified achievements"
	case SectionExperience:
		msg = "Enhance work experience with action verbs and measurable results"
	case SectionEducation:
		msg = "Provide complete education information including degrees and institutions"
	case SectionSkills:
		msg = "Add relevant technical and professional skills section"
	case SectionFormatting:
		msg = "Improve resume formatting and structure for better readability"
	}
	return msg
}

func containsAny(text string, terms []string) (found bool) {
	for _, term := range terms {
		if strings.Contains(text, term) {
			found = true
			return found
		}
	}
	return found
}

func countContained(text string, terms []string) (count int) {
	for _, term := range terms {
		if strings.Contains(text, term) {
			count++
		}
	}
	return count
}

func capScore(score int) (capped int) {
	capped = minInt(100, score)
	return capped
}

func minInt(a, b int) (m int) {
	m = a
	if b < a {
		m = b
	}
	return m
}
