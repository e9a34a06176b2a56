package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown renders doc as canonical markdown: title, summary, one H2 per
// section, and a trailing tag list.
func Markdown(doc Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", doc.Title)
	if doc.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", doc.Summary)
	}
	for _, section := range doc.Sections {
		if section.ID != SectionContent {
			fmt.Fprintf(&b, "\n## %s\n", section.Title)
		}
		if section.Content != "" {
			fmt.Fprintf(&b, "\n%s\n", section.Content)
		}
	}
	if len(doc.CategoryTags) > 0 || len(doc.SDGTags) > 0 {
		b.WriteString("\n## Tags\n\n")
		if len(doc.CategoryTags) > 0 {
			fmt.Fprintf(&b, "- Sectors: %s\n", strings.Join(doc.CategoryTags, ", "))
		}
		if len(doc.SDGTags) > 0 {
			fmt.Fprintf(&b, "- SDGs: %s\n", strings.Join(doc.SDGTags, ", "))
		}
	}
	return b.String()
}

// HTML renders doc through Markdown into HTML. Raw HTML in the source text
// is omitted.
func HTML(doc Document) (string, error) {
	return MarkdownToHTML(Markdown(doc))
}

// MarkdownToHTML converts markdown to HTML.
func MarkdownToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}
