package extract

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

type catalogEntry struct {
	id    string
	title string
	re    *regexp.Regexp
}

type tagMatcher struct {
	name string
	re   *regexp.Regexp
}

// Extractor converts free text into Documents using a fixed vocabulary.
// It is safe for concurrent use.
type Extractor struct {
	placeholder string
	catalog     []catalogEntry
	summaryRe   *regexp.Regexp
	sectors     []tagMatcher
	sdgs        []tagMatcher
	passiveRe   *regexp.Regexp
	exclusiveRe *regexp.Regexp
	inclusiveRe *regexp.Regexp
}

// New compiles an Extractor from vocab.
func New(vocab *Vocabulary) (*Extractor, error) {
	if vocab == nil {
		return nil, fmt.Errorf("extract: vocabulary is nil")
	}
	e := &Extractor{placeholder: strings.TrimSpace(vocab.TitlePlaceholder)}
	for _, spec := range vocab.Sections {
		re, err := compileTerms(spec.Keywords, true)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", spec.ID, err)
		}
		title := strings.TrimSpace(spec.Title)
		if title == "" {
			title = spec.ID
		}
		e.catalog = append(e.catalog, catalogEntry{id: spec.ID, title: title, re: re})
	}
	var err error
	if e.summaryRe, err = compileTerms(vocab.SummaryHeaders, false); err != nil {
		return nil, fmt.Errorf("summary headers: %w", err)
	}
	if e.sectors, err = compileTags(vocab.Sectors); err != nil {
		return nil, err
	}
	if e.sdgs, err = compileTags(vocab.SDGs); err != nil {
		return nil, err
	}
	if len(vocab.PassiveAuxiliaries) > 0 {
		quoted := make([]string, 0, len(vocab.PassiveAuxiliaries))
		for _, aux := range vocab.PassiveAuxiliaries {
			if aux = strings.TrimSpace(aux); aux != "" {
				quoted = append(quoted, regexp.QuoteMeta(aux))
			}
		}
		e.passiveRe, err = regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\s+(?:\w+ly\s+)?\w+(?:ed|en)\b`)
		if err != nil {
			return nil, fmt.Errorf("passive auxiliaries: %w", err)
		}
	}
	if e.exclusiveRe, err = compileTerms(vocab.ExclusionaryTerms, false); err != nil {
		return nil, fmt.Errorf("exclusionary terms: %w", err)
	}
	if e.inclusiveRe, err = compileTerms(vocab.InclusiveTerms, false); err != nil {
		return nil, fmt.Errorf("inclusive terms: %w", err)
	}
	return e, nil
}

func compileTags(specs []TagSpec) ([]tagMatcher, error) {
	out := make([]tagMatcher, 0, len(specs))
	for _, spec := range specs {
		re, err := compileTerms(spec.Keywords, false)
		if err != nil {
			return nil, fmt.Errorf("tag %q: %w", spec.Name, err)
		}
		out = append(out, tagMatcher{name: spec.Name, re: re})
	}
	return out, nil
}

// Default returns an Extractor over the embedded vocabulary. It panics if the
// embedded vocabulary is invalid, which only a broken build can cause.
func Default() *Extractor {
	vocab, err := DefaultVocabulary()
	if err != nil {
		panic(err)
	}
	e, err := New(vocab)
	if err != nil {
		panic(err)
	}
	return e
}

var defaultExtractor = sync.OnceValue(Default)

// Extract runs the default Extractor.
func Extract(text string) Document {
	return defaultExtractor().Extract(text)
}

// Extract builds a Document from text. It never fails: degenerate input
// produces the placeholder title and a single catch-all section.
func (e *Extractor) Extract(text string) Document {
	text = normalizeText(text)
	lines := parseLines(text)

	titleIdx, title := e.findTitle(lines)
	chunks := e.chunk(lines, titleIdx)

	doc := Document{
		Title:    title,
		Sections: e.buildSections(chunks),
	}
	doc.Summary = e.findSummary(lines, titleIdx, chunks)
	if len(doc.Sections) == 0 {
		body := make([]string, 0, len(lines))
		for i, line := range lines {
			if i != titleIdx {
				body = append(body, line.raw)
			}
		}
		doc.Sections = []Section{{ID: SectionContent, Title: "Content", Content: tidyBlock(body)}}
	}

	doc.CategoryTags = rankTags(e.sectors, text)
	doc.SDGTags = rankTags(e.sdgs, text)
	doc.Scores = e.score(lines)
	return doc
}

func normalizeText(text string) string {
	text = strings.ToValidUTF8(text, "�")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return norm.NFKC.String(text)
}
