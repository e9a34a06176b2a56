package extract

// Catalog section identifiers.
const (
	SectionResponsibilities   = "responsibilities"
	SectionQualifications     = "qualifications"
	SectionCompetencies       = "competencies"
	SectionWorkingConditions  = "working_conditions"
	SectionApplicationProcess = "application_process"
	SectionAboutOrganization  = "about_organization"
	// SectionContent is the catch-all used when no section is recognised.
	SectionContent = "content"
)

// Score bounds.
const (
	ScoreFloor   = 60
	ScoreCeiling = 100
)

// MaxSummaryChars caps Document.Summary.
const MaxSummaryChars = 600

// Section is one titled block of the document.
type Section struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Scores are heuristic quality indicators in [ScoreFloor, ScoreCeiling].
type Scores struct {
	Clarity         int `json:"clarity"`
	DEIFriendliness int `json:"dei_friendliness"`
	ReadingLevel    int `json:"reading_level"`
}

// Document is the structured view of a generated job description.
type Document struct {
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Sections     []Section `json:"sections"`
	CategoryTags []string  `json:"category_tags"`
	SDGTags      []string  `json:"sdg_tags"`
	Scores       Scores    `json:"scores"`
}

// Section returns the section with the given id.
func (d Document) Section(id string) (Section, bool) {
	for _, s := range d.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}
