package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type lineKind int

const (
	linePlain lineKind = iota
	lineBlank
	lineHeader
	lineBold
	lineLabel
	lineBullet
)

const (
	maxTitleChars  = 200
	maxLabelChars  = 60
	maxLabelWords  = 5
	maxSlugChars   = 48
	fallbackSlugID = "section"
)

var (
	headerPattern = regexp.MustCompile(`^\s{0,3}(#{1,6})\s+(.*?)[\s#]*$`)
	boldPattern   = regexp.MustCompile(`^\s*(?:\*\*|__)(.+?)(?:\*\*|__)\s*:?\s*$`)
	labelPattern  = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 &/'()\-]*?)\s*:\s*(.*)$`)
	titlePattern  = regexp.MustCompile(`(?i)^(?:job\s+|position\s+)?title\s*:\s*(\S.*)$`)
	bulletPattern = regexp.MustCompile(`^\s*(?:[-*+•]|\d+[.)])\s+`)
	emphasisChars = strings.NewReplacer("**", "", "__", "", "`", "")
)

type line struct {
	raw   string
	kind  lineKind
	level int
	// text is the cleaned header, bold, or label text.
	text string
	// rest is the remainder after a label's colon.
	rest string
}

type chunk struct {
	header string
	lines  []string
}

func parseLines(text string) []line {
	rawLines := strings.Split(text, "\n")
	out := make([]line, 0, len(rawLines))
	for _, raw := range rawLines {
		out = append(out, parseLine(raw))
	}
	return out
}

func parseLine(raw string) line {
	l := line{raw: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		l.kind = lineBlank
		return l
	}
	if m := headerPattern.FindStringSubmatch(raw); m != nil {
		if text := cleanHeader(m[2]); text != "" {
			l.kind = lineHeader
			l.level = len(m[1])
			l.text = text
			return l
		}
	}
	if bulletPattern.MatchString(raw) {
		l.kind = lineBullet
		return l
	}
	if m := boldPattern.FindStringSubmatch(trimmed); m != nil {
		if text := cleanHeader(m[1]); text != "" {
			l.kind = lineBold
			l.text = text
			return l
		}
	}
	if m := labelPattern.FindStringSubmatch(cleanInline(trimmed)); m != nil {
		label := strings.TrimSpace(m[1])
		if utf8.RuneCountInString(label) <= maxLabelChars {
			l.kind = lineLabel
			l.text = label
			l.rest = strings.TrimSpace(m[2])
			return l
		}
	}
	l.kind = linePlain
	return l
}

func cleanInline(s string) string {
	return strings.TrimSpace(emphasisChars.Replace(s))
}

func cleanHeader(s string) string {
	s = cleanInline(s)
	s = strings.Trim(s, "*_ \t")
	s = strings.TrimSuffix(s, ":")
	return strings.TrimSpace(s)
}

// catalogMatch returns the first catalog entry whose keywords match header.
func (e *Extractor) catalogMatch(header string) (catalogEntry, bool) {
	for _, entry := range e.catalog {
		if entry.re != nil && entry.re.MatchString(header) {
			return entry, true
		}
	}
	return catalogEntry{}, false
}

func (e *Extractor) isSummaryHeader(header string) bool {
	if e.summaryRe == nil || !e.summaryRe.MatchString(header) {
		return false
	}
	_, catalogued := e.catalogMatch(header)
	return !catalogued
}

func (e *Extractor) isStructural(header string) bool {
	if _, ok := e.catalogMatch(header); ok {
		return true
	}
	return e.isSummaryHeader(header)
}

// findTitle returns the index of the line supplying the title, or -1 when
// the placeholder is used.
func (e *Extractor) findTitle(lines []line) (int, string) {
	for i, l := range lines {
		if l.kind != lineLabel && l.kind != linePlain {
			continue
		}
		if m := titlePattern.FindStringSubmatch(cleanInline(l.raw)); m != nil {
			if title := cleanTitle(m[1]); title != "" {
				return i, title
			}
		}
	}
	for i, l := range lines {
		if l.kind == lineHeader && l.level <= 2 && !e.isStructural(l.text) {
			return i, cleanTitle(l.text)
		}
	}
	for i, l := range lines {
		if l.kind == lineBold && !e.isStructural(l.text) {
			return i, cleanTitle(l.text)
		}
	}
	return -1, e.placeholder
}

func cleanTitle(s string) string {
	s = strings.Join(strings.Fields(cleanHeader(s)), " ")
	return clipRunes(s, maxTitleChars)
}

// boundary reports whether l starts a new section, the header text, and any
// content carried on the same line. Catalogued labels with a value keep the
// whole line as content.
func (e *Extractor) boundary(l line) (bool, string, string) {
	switch l.kind {
	case lineHeader, lineBold:
		return true, l.text, ""
	case lineLabel:
		if l.rest == "" && len(strings.Fields(l.text)) <= maxLabelWords {
			return true, l.text, ""
		}
		if _, ok := e.catalogMatch(l.text); ok && !e.isSummaryHeader(l.text) {
			return true, l.text, strings.TrimSpace(l.raw)
		}
	}
	return false, "", ""
}

// chunk splits lines into header-led chunks. Lines before the first boundary
// and the title line are not part of any chunk.
func (e *Extractor) chunk(lines []line, titleIdx int) []chunk {
	var chunks []chunk
	for i, l := range lines {
		if i == titleIdx {
			continue
		}
		if ok, header, first := e.boundary(l); ok {
			c := chunk{header: header}
			if first != "" {
				c.lines = append(c.lines, first)
			}
			chunks = append(chunks, c)
			continue
		}
		if len(chunks) > 0 {
			last := &chunks[len(chunks)-1]
			last.lines = append(last.lines, l.raw)
		}
	}
	return chunks
}

func (e *Extractor) buildSections(chunks []chunk) []Section {
	var sections []Section
	catalogued := make(map[string]int)
	used := make(map[string]bool)
	for _, c := range chunks {
		content := tidyBlock(c.lines)
		if content == "" {
			continue
		}
		if entry, ok := e.catalogMatch(c.header); ok {
			if idx, seen := catalogued[entry.id]; seen {
				sections[idx].Content += "\n\n" + content
				continue
			}
			catalogued[entry.id] = len(sections)
			used[entry.id] = true
			sections = append(sections, Section{ID: entry.id, Title: entry.title, Content: content})
			continue
		}
		base := slugify(c.header)
		id := base
		for n := 2; used[id]; n++ {
			id = base + "-" + strconv.Itoa(n)
		}
		used[id] = true
		sections = append(sections, Section{ID: id, Title: displayTitle(c.header), Content: content})
	}
	return sections
}

func (e *Extractor) findSummary(lines []line, titleIdx int, chunks []chunk) string {
	for _, c := range chunks {
		if e.isSummaryHeader(c.header) {
			if text := plainText(c.lines); text != "" {
				return clipSummary(text)
			}
		}
	}
	for _, l := range lines {
		if l.kind == lineLabel && l.rest != "" && e.isSummaryHeader(l.text) {
			return clipSummary(cleanInline(l.rest))
		}
	}
	var paragraph []string
	for i := titleIdx + 1; i < len(lines); i++ {
		l := lines[i]
		if l.kind == linePlain {
			paragraph = append(paragraph, l.raw)
			continue
		}
		if len(paragraph) > 0 {
			break
		}
	}
	return clipSummary(plainText(paragraph))
}

// plainText flattens markdown lines into one line of prose.
func plainText(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, raw := range lines {
		s := bulletPattern.ReplaceAllString(raw, "")
		s = cleanInline(s)
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func clipSummary(s string) string {
	if utf8.RuneCountInString(s) <= MaxSummaryChars {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:MaxSummaryChars-1])
	if idx := strings.LastIndexByte(cut, ' '); idx > MaxSummaryChars/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,;:") + "…"
}

func clipRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// tidyBlock trims trailing whitespace, drops surrounding blank lines, and
// collapses runs of blank lines.
func tidyBlock(lines []string) string {
	out := make([]string, 0, len(lines))
	blank := false
	for _, raw := range lines {
		raw = strings.TrimRightFunc(raw, unicode.IsSpace)
		if strings.TrimSpace(raw) == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, raw)
	}
	return strings.Join(out, "\n")
}

func slugify(header string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(header) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	slug := clipRunes(b.String(), maxSlugChars)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return fallbackSlugID
	}
	return slug
}

// displayTitle keeps header text as written, except that shouted headers
// are title-cased.
func displayTitle(header string) string {
	hasLetter := false
	for _, r := range header {
		if unicode.IsLower(r) {
			return header
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	if !hasLetter {
		return header
	}
	return cases.Title(language.English).String(strings.ToLower(header))
}
