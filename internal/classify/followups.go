package classify

// MaxFollowUps caps the number of questions returned.
const MaxFollowUps = 3

// AdviseOptions tunes Advise.
type AdviseOptions struct {
	// IncludeOptional also asks about optional fields (compensation,
	// deadline) once the core fields are covered.
	IncludeOptional bool
	// Limit overrides MaxFollowUps when positive.
	Limit int
}

// Advice lists what a brief is missing.
type Advice struct {
	Questions       []string `json:"questions"`
	Missing         []string `json:"missing"`
	MissingOptional []string `json:"missing_optional,omitempty"`
}

// Advise scans the brief for the standard posting fields. Only brief and
// briefWithLink classifications receive advice; other modes yield an empty
// Advice. Fields are checked in vocabulary order so output is stable.
func (c *Classifier) Advise(cls Classification, opts AdviseOptions) Advice {
	advice := Advice{Questions: []string{}, Missing: []string{}}
	if cls.Mode != ModeBrief && cls.Mode != ModeBriefWithLink {
		return advice
	}
	limit := MaxFollowUps
	if opts.Limit > 0 {
		limit = opts.Limit
	}

	var optionalQuestions []string
	for _, field := range c.fields {
		if field.spec.SkipWithLink && cls.Mode == ModeBriefWithLink {
			continue
		}
		if field.matcher.match(cls.BriefText) {
			continue
		}
		if field.spec.Core {
			advice.Missing = append(advice.Missing, field.spec.ID)
			if len(advice.Questions) < limit {
				advice.Questions = append(advice.Questions, field.spec.Question)
			}
			continue
		}
		advice.MissingOptional = append(advice.MissingOptional, field.spec.ID)
		optionalQuestions = append(optionalQuestions, field.spec.Question)
	}
	if opts.IncludeOptional {
		for _, q := range optionalQuestions {
			if len(advice.Questions) >= limit {
				break
			}
			advice.Questions = append(advice.Questions, q)
		}
	}
	return advice
}

// FollowUps returns at most MaxFollowUps questions for the core fields the
// brief does not mention.
func (c *Classifier) FollowUps(cls Classification) []string {
	return c.Advise(cls, AdviseOptions{}).Questions
}

// FieldQuestion returns the canned question for a field id.
func (c *Classifier) FieldQuestion(id string) (string, bool) {
	for _, field := range c.fields {
		if field.spec.ID == id {
			return field.spec.Question, true
		}
	}
	return "", false
}

// FieldLabel returns the human-readable label for a field id, falling back to
// the id itself.
func (c *Classifier) FieldLabel(id string) string {
	for _, field := range c.fields {
		if field.spec.ID == id && field.spec.Label != "" {
			return field.spec.Label
		}
	}
	return id
}

// FollowUps advises with the embedded vocabulary.
func FollowUps(cls Classification) []string {
	return defaultClassifier().FollowUps(cls)
}

// Advise advises with the embedded vocabulary.
func Advise(cls Classification, opts AdviseOptions) Advice {
	return defaultClassifier().Advise(cls, opts)
}
