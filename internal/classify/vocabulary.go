package classify

import (
	_ "embed"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// FieldSpec describes one follow-up field.
type FieldSpec struct {
	ID       string   `yaml:"id"`
	Label    string   `yaml:"label"`
	Core     bool     `yaml:"core"`
	Question string   `yaml:"question"`
	Terms    []string `yaml:"terms"`
	Patterns []string `yaml:"patterns"`
	// SkipWithLink drops the field when the submission includes a link.
	SkipWithLink bool `yaml:"skip_with_link"`
}

// Vocabulary is the data behind classification and follow-up advice.
type Vocabulary struct {
	JobTerms        []string    `yaml:"job_terms"`
	JobBoardDomains []string    `yaml:"job_board_domains"`
	JobPathSegments []string    `yaml:"job_path_segments"`
	JobHostPrefixes []string    `yaml:"job_host_prefixes"`
	FollowUpFields  []FieldSpec `yaml:"follow_up_fields"`
}

// LoadVocabulary decodes a YAML vocabulary.
func LoadVocabulary(r io.Reader) (*Vocabulary, error) {
	var vocab Vocabulary
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&vocab); err != nil {
		return nil, fmt.Errorf("decode vocabulary: %w", err)
	}
	if err := vocab.validate(); err != nil {
		return nil, err
	}
	return &vocab, nil
}

func (v *Vocabulary) validate() error {
	if len(v.JobTerms) == 0 {
		return errors.New("vocabulary: job_terms must not be empty")
	}
	seen := make(map[string]struct{}, len(v.FollowUpFields))
	for i, field := range v.FollowUpFields {
		if strings.TrimSpace(field.ID) == "" {
			return fmt.Errorf("vocabulary: follow_up_fields[%d].id is required", i)
		}
		if _, dup := seen[field.ID]; dup {
			return fmt.Errorf("vocabulary: duplicate follow-up field %q", field.ID)
		}
		seen[field.ID] = struct{}{}
		if strings.TrimSpace(field.Question) == "" {
			return fmt.Errorf("vocabulary: follow-up field %q has no question", field.ID)
		}
		if len(field.Terms) == 0 && len(field.Patterns) == 0 {
			return fmt.Errorf("vocabulary: follow-up field %q has no terms or patterns", field.ID)
		}
	}
	return nil
}

var (
	defaultOnce       sync.Once
	defaultVocab      *Vocabulary
	defaultVocabError error
)

// DefaultVocabulary returns the embedded vocabulary.
func DefaultVocabulary() (*Vocabulary, error) {
	defaultOnce.Do(func() {
		defaultVocab, defaultVocabError = LoadVocabulary(bytes.NewReader(defaultVocabulary))
	})
	return defaultVocab, defaultVocabError
}

// termMatcher reports whether any of a list of terms occurs on word boundaries.
type termMatcher struct {
	re *regexp.Regexp
}

func newTermMatcher(terms []string, patterns []string) (*termMatcher, error) {
	alternatives := make([]string, 0, len(terms)+len(patterns))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		alternatives = append(alternatives, `\b`+regexp.QuoteMeta(strings.ToLower(term))+`\b`)
	}
	for _, pattern := range patterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		alternatives = append(alternatives, "(?:"+pattern+")")
	}
	if len(alternatives) == 0 {
		return &termMatcher{}, nil
	}
	re, err := regexp.Compile(`(?i)` + strings.Join(alternatives, "|"))
	if err != nil {
		return nil, err
	}
	return &termMatcher{re: re}, nil
}

func (m *termMatcher) match(text string) bool {
	return m != nil && m.re != nil && m.re.MatchString(text)
}
