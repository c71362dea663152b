package scorer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Rubric section names. They are also the keys of AnalysisResult.SectionScores.
const (
	SectionContact    = "contact_information"
	SectionSummary    = "professional_summary"
	SectionExperience = "work_experience"
	SectionEducation  = "education"
	SectionSkills     = "skills"
	SectionFormatting = "formatting"
)

// SectionNames returns the six rubric sections in rubric order.
func SectionNames() (names []string) {
	names = []string{
		SectionContact,
		SectionSummary,
		SectionExperience,
		SectionEducation,
		SectionSkills,
		SectionFormatting,
	}
	return names
}

// DisplayName turns a section key into its title-cased label, e.g. "Work Experience".
func DisplayName(section string) (name string) {
	name = cases.Title(language.English).String(strings.ReplaceAll(section, "_", " "))
	return name
}

// ScoringPoint is one line of the point guide shown to the model.
type ScoringPoint struct {
	Description string
	Points      int
}

// SectionRubric describes one weighted section.
type SectionRubric struct {
	Name string
	// WeightPercent is the weight in whole percent; the six weights sum to 100.
	WeightPercent int
	Criteria      []string
	PointGuide    []ScoringPoint
}

// Weight returns the weight as a fraction.
func (s SectionRubric) Weight() (w float64) {
	w = float64(s.WeightPercent) / 100
	return w
}

// Rubric is the static scoring table. Build it once with DefaultRubric and pass it by value.
type Rubric struct {
	Sections              []SectionRubric
	ATSFactors            []string
	ContentQualityFactors []string
}

// DefaultRubric returns the standard six-section rubric.
func DefaultRubric() (r Rubric) {
	r = Rubric{
		Sections: []SectionRubric{
			{
				Name:          SectionContact,
				WeightPercent: 15,
				Criteria:      []string{"Professional email address", "Phone number present", "LinkedIn profile", "Location information"},
				PointGuide: []ScoringPoint{
					{"Professional email address present", 20},
					{"Phone number included", 20},
					{"LinkedIn profile or professional website", 30},
					{"Clear location/availability information", 30},
				},
			},
			{
				Name:          SectionSummary,
				WeightPercent: 20,
				Criteria:      []string{"Clear value proposition", "Industry-specific keywords", "Quantifiable achievements", "Professional tone"},
				PointGuide: []ScoringPoint{
					{"Clear value proposition and career focus", 25},
					{"Industry-specific keywords and terminology", 25},
					{"Quantifiable achievements or experience metrics", 25},
					{"Professional tone and compelling language", 25},
				},
			},
			{
				Name:          SectionExperience,
				WeightPercent: 35,
				Criteria:      []string{"Action verbs usage", "Quantified results", "Relevant experience", "Career progression"},
				PointGuide: []ScoringPoint{
					{"Use of strong action verbs to start bullet points", 20},
					{"Quantified results and achievements with numbers/percentages", 30},
					{"Relevant experience for target roles", 25},
					{"Clear career progression and growth", 25},
				},
			},
			{
				Name:          SectionEducation,
				WeightPercent: 15,
				Criteria:      []string{"Relevant degrees", "Institution reputation", "Graduation dates", "Additional certifications"},
				PointGuide: []ScoringPoint{
					{"Relevant degrees and certifications", 40},
					{"Proper formatting of institutions and dates", 30},
					{"Additional relevant coursework or honors", 30},
				},
			},
			{
				Name:          SectionSkills,
				WeightPercent: 10,
				Criteria:      []string{"Technical skills relevance", "Skill categorization", "Proficiency indicators", "Industry alignment"},
				PointGuide: []ScoringPoint{
					{"Technical skills relevant to target role", 30},
					{"Proper categorization and organization", 25},
					{"Balance of hard and soft skills", 25},
					{"Industry alignment and current technologies", 20},
				},
			},
			{
				Name:          SectionFormatting,
				WeightPercent: 5,
				Criteria:      []string{"ATS-friendly format", "Consistent styling", "Appropriate length", "Clean structure"},
				PointGuide: []ScoringPoint{
					{"ATS-friendly structure and layout", 40},
					{"Consistent formatting and styling", 30},
					{"Appropriate length (1-2 pages)", 15},
					{"Clean, professional appearance", 15},
				},
			},
		},
		ATSFactors: []string{
			"Standard section headings used",
			"Simple, clean formatting without graphics",
			"Appropriate keyword density for target roles",
			"Compatible file format and structure",
		},
		ContentQualityFactors: []string{
			"Achievement quantification with specific metrics",
			"Professional language and tone",
			"Relevance to target positions",
			"Clear and concise communication",
		},
	}
	return r
}

// TotalWeightPercent sums the section weights.
func (r Rubric) TotalWeightPercent() (total int) {
	for _, s := range r.Sections {
		total += s.WeightPercent
	}
	return total
}

// weightedHundredths returns the weighted sum scaled by 100. Missing sections count as 0.
func (r Rubric) weightedHundredths(scores map[string]int) (sum int) {
	for _, s := range r.Sections {
		sum += scores[s.Name] * s.WeightPercent
	}
	return sum
}

// WeightedFloor is the weighted sum of section scores rounded down.
func (r Rubric) WeightedFloor(scores map[string]int) (overall int) {
	overall = ClampScore(float64(r.weightedHundredths(scores) / 100))
	return overall
}

// WeightedRound is the weighted sum of section scores rounded to the nearest integer, halves up.
func (r Rubric) WeightedRound(scores map[string]int) (overall int) {
	overall = ClampScore(float64((r.weightedHundredths(scores) + 50) / 100))
	return overall
}
