package extract

import (
	_ "embed"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// SectionSpec describes one catalogued section.
type SectionSpec struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Keywords []string `yaml:"keywords"`
}

// TagSpec describes one sector or SDG tag.
type TagSpec struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Vocabulary is the data behind extraction, tagging, and scoring.
type Vocabulary struct {
	TitlePlaceholder   string        `yaml:"title_placeholder"`
	SummaryHeaders     []string      `yaml:"summary_headers"`
	Sections           []SectionSpec `yaml:"sections"`
	Sectors            []TagSpec     `yaml:"sectors"`
	SDGs               []TagSpec     `yaml:"sdgs"`
	PassiveAuxiliaries []string      `yaml:"passive_auxiliaries"`
	ExclusionaryTerms  []string      `yaml:"exclusionary_terms"`
	InclusiveTerms     []string      `yaml:"inclusive_terms"`
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

// LoadVocabularyFile reads a vocabulary from disk.
func LoadVocabularyFile(path string) (*Vocabulary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer file.Close()
	return LoadVocabulary(file)
}

func (v *Vocabulary) validate() error {
	if strings.TrimSpace(v.TitlePlaceholder) == "" {
		return errors.New("vocabulary: title_placeholder is required")
	}
	if len(v.Sections) == 0 {
		return errors.New("vocabulary: sections must not be empty")
	}
	seen := make(map[string]struct{}, len(v.Sections))
	for i, section := range v.Sections {
		if strings.TrimSpace(section.ID) == "" {
			return fmt.Errorf("vocabulary: sections[%d].id is required", i)
		}
		if _, dup := seen[section.ID]; dup {
			return fmt.Errorf("vocabulary: duplicate section %q", section.ID)
		}
		seen[section.ID] = struct{}{}
		if len(section.Keywords) == 0 {
			return fmt.Errorf("vocabulary: section %q has no keywords", section.ID)
		}
	}
	for _, group := range [][]TagSpec{v.Sectors, v.SDGs} {
		for i, tag := range group {
			if strings.TrimSpace(tag.Name) == "" {
				return fmt.Errorf("vocabulary: tag %d has no name", i)
			}
			if len(tag.Keywords) == 0 {
				return fmt.Errorf("vocabulary: tag %q has no keywords", tag.Name)
			}
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

// compileTerms builds one case-insensitive alternation of word-bounded
// terms. With prefix set, terms may be followed by further word characters.
// A nil result matches nothing.
func compileTerms(terms []string, prefix bool) (*regexp.Regexp, error) {
	alternatives := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		alt := `\b` + regexp.QuoteMeta(term)
		if !prefix && isWordByte(term[len(term)-1]) {
			alt += `\b`
		}
		alternatives = append(alternatives, alt)
	}
	if len(alternatives) == 0 {
		return nil, nil
	}
	return regexp.Compile(`(?i)(?:` + strings.Join(alternatives, "|") + `)`)
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func countMatches(re *regexp.Regexp, text string) int {
	if re == nil {
		return 0
	}
	return len(re.FindAllStringIndex(text, -1))
}
