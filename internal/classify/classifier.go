package classify

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// Mode is the detected submission kind.
type Mode string

const (
	ModeBrief         Mode = "brief"
	ModeReferenceLink Mode = "referenceLink"
	ModeBriefWithLink Mode = "briefWithLink"
	ModeUnknown       Mode = "unknown"
)

// Thresholds and confidences. These are empirical and expected to be
// recalibrated against real submissions.
const (
	MinInputChars          = 10
	SubstantialWords       = 10
	SubstantialSentences   = 2
	ReliableConfidence     = 0.7
	confidenceTooShort     = 1.0
	confidenceStrong       = 0.9
	confidenceGenericLink  = 0.7
	confidenceWeakBrief    = 0.6
	confidenceUnknownProse = 0.8
	confidenceUnknownVague = 0.5
	urlTrailingPunctuation = ".,;:!?]}>'\""
)

var (
	urlPattern      = regexp.MustCompile(`(?i)https?://[^\s<>"'()\[\]{}]+`)
	wordPattern     = regexp.MustCompile(`\w+`)
	sentenceBreaks  = regexp.MustCompile(`[.!?]+`)
	spaceCollapsing = regexp.MustCompile(`\s+`)
)

// Classification is the result of Classify.
type Classification struct {
	Mode       Mode    `json:"mode"`
	BriefText  string  `json:"brief_text,omitempty"`
	URL        string  `json:"url,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Reliable reports whether the orchestrator may proceed without clarification.
func (c Classification) Reliable() bool {
	return c.Mode != ModeUnknown && c.Confidence >= ReliableConfidence
}

// HasLink reports whether a URL was extracted.
func (c Classification) HasLink() bool {
	return c.URL != ""
}

// Classifier classifies submissions against a vocabulary.
type Classifier struct {
	vocab      *Vocabulary
	jobTerms   *termMatcher
	fields     []compiledField
	boards     []string
	segments   []string
	hostPrefix []string
}

type compiledField struct {
	spec    FieldSpec
	matcher *termMatcher
}

// New compiles vocab into a Classifier.
func New(vocab *Vocabulary) (*Classifier, error) {
	if vocab == nil {
		return nil, fmt.Errorf("classifier: vocabulary required")
	}
	jobTerms, err := newTermMatcher(vocab.JobTerms, nil)
	if err != nil {
		return nil, fmt.Errorf("classifier: job terms: %w", err)
	}
	c := &Classifier{vocab: vocab, jobTerms: jobTerms}
	for _, spec := range vocab.FollowUpFields {
		matcher, err := newTermMatcher(spec.Terms, spec.Patterns)
		if err != nil {
			return nil, fmt.Errorf("classifier: field %s: %w", spec.ID, err)
		}
		c.fields = append(c.fields, compiledField{spec: spec, matcher: matcher})
	}
	for _, domain := range vocab.JobBoardDomains {
		if d := strings.ToLower(strings.TrimSpace(domain)); d != "" {
			c.boards = append(c.boards, d)
		}
	}
	for _, seg := range vocab.JobPathSegments {
		if s := strings.Trim(strings.ToLower(strings.TrimSpace(seg)), "/"); s != "" {
			c.segments = append(c.segments, "/"+s+"/")
		}
	}
	for _, prefix := range vocab.JobHostPrefixes {
		if p := strings.ToLower(strings.TrimSpace(prefix)); p != "" {
			c.hostPrefix = append(c.hostPrefix, p)
		}
	}
	return c, nil
}

// Default returns a Classifier over the embedded vocabulary.
func Default() *Classifier {
	vocab, err := DefaultVocabulary()
	if err != nil {
		panic(fmt.Sprintf("embedded classifier vocabulary is invalid: %v", err))
	}
	c, err := New(vocab)
	if err != nil {
		panic(fmt.Sprintf("embedded classifier vocabulary does not compile: %v", err))
	}
	return c
}

// Classify decides the submission mode of text.
func (c *Classifier) Classify(text string) Classification {
	text = strings.TrimSpace(norm.NFKC.String(text))
	if len([]rune(text)) < MinInputChars {
		return Classification{Mode: ModeUnknown, BriefText: text, Confidence: confidenceTooShort}
	}

	link, remainder := extractURL(text)
	remainder = strings.TrimSpace(spaceCollapsing.ReplaceAllString(remainder, " "))
	hasVocab := c.jobTerms.match(remainder)
	substantial := hasVocab && isSubstantial(remainder)

	switch {
	case link != "" && substantial:
		return Classification{Mode: ModeBriefWithLink, BriefText: remainder, URL: link, Confidence: confidenceStrong}
	case link != "":
		confidence := confidenceGenericLink
		if c.jobRelatedURL(link) {
			confidence = confidenceStrong
		}
		return Classification{Mode: ModeReferenceLink, BriefText: remainder, URL: link, Confidence: confidence}
	case substantial:
		return Classification{Mode: ModeBrief, BriefText: remainder, Confidence: confidenceStrong}
	case hasVocab:
		return Classification{Mode: ModeBrief, BriefText: remainder, Confidence: confidenceWeakBrief}
	default:
		confidence := confidenceUnknownVague
		if countWords(remainder) >= SubstantialWords {
			confidence = confidenceUnknownProse
		}
		return Classification{Mode: ModeUnknown, BriefText: remainder, Confidence: confidence}
	}
}

func countWords(text string) int {
	return len(wordPattern.FindAllStringIndex(text, -1))
}

// isSubstantial applies the length and sentence tests of a usable brief.
// A single terminated sentence splits into two fragments and passes.
func isSubstantial(text string) bool {
	if countWords(text) < SubstantialWords {
		return false
	}
	return len(sentenceBreaks.Split(text, -1)) >= SubstantialSentences
}

// extractURL returns the first well-formed absolute http(s) URL and the text
// with that URL removed.
func extractURL(text string) (string, string) {
	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		candidate := strings.TrimRight(text[loc[0]:loc[1]], urlTrailingPunctuation)
		if !wellFormed(candidate) {
			continue
		}
		end := loc[0] + len(candidate)
		return candidate, text[:loc[0]] + " " + text[end:]
	}
	return "", text
}

func wellFormed(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	host := parsed.Hostname()
	return host != "" && strings.Contains(host, ".") && !strings.HasPrefix(host, ".") && !strings.HasSuffix(host, ".")
}

func (c *Classifier) jobRelatedURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	for _, board := range c.boards {
		if host == board || strings.HasSuffix(host, "."+board) {
			return true
		}
	}
	for _, prefix := range c.hostPrefix {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	path := strings.ToLower(parsed.Path) + "/"
	for _, seg := range c.segments {
		if strings.Contains(path, seg) {
			return true
		}
	}
	return false
}

var defaultClassifier = sync.OnceValue(Default)

// Classify classifies text with the embedded vocabulary.
func Classify(text string) Classification {
	return defaultClassifier().Classify(text)
}
