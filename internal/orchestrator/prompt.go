package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"jobdraft/internal/classify"
	"jobdraft/internal/config"
	"jobdraft/internal/fetch"
	"jobdraft/internal/llm"
)

const systemPrompt = `You are an experienced recruiter who writes clear, inclusive job descriptions.
Respond with Markdown only, without commentary before or after the document.
Structure:
- Start with a level-one heading containing the job title.
- Follow with a short summary paragraph of two to four sentences.
- Use level-two headings for these sections, in this order, when information allows:
  About the Organization, Key Responsibilities, Qualifications, Competencies, Working Conditions, How to Apply.
- Use bullet lists for responsibilities and qualifications.
Style:
- Use gender-neutral, inclusive language and plain words.
- Keep sentences under 20 words where possible and prefer the active voice.
- Do not invent salaries, deadlines, or contact details that were not provided; leave a clear placeholder instead.`

// PromptInput is everything known about the role when the prompt is built.
type PromptInput struct {
	Mode      classify.Mode
	Brief     string
	URL       string
	Reference *fetch.Page
}

// BuildRequest turns in into a chat request using the generation settings.
func BuildRequest(in PromptInput, gen config.Generation) llm.Request {
	return llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: userPrompt(in)},
		},
		Temperature: gen.Temperature,
		MaxTokens:   gen.MaxTokens,
		Stream:      gen.Stream,
	}
}

func userPrompt(in PromptInput) string {
	var sb strings.Builder
	brief := strings.TrimSpace(in.Brief)
	switch {
	case in.Mode == classify.ModeReferenceLink && in.Reference != nil:
		sb.WriteString("Rewrite the reference job posting below as a complete job description in the required structure.\n")
	case in.Mode == classify.ModeReferenceLink:
		sb.WriteString("Write a complete job description for the posting at the link below. Its content could not be retrieved, so keep details generic.\n")
	default:
		sb.WriteString("Write a complete job description from the hiring brief below.\n")
	}
	if brief != "" {
		sb.WriteString("\nHiring brief:\n")
		sb.WriteString(brief)
		sb.WriteString("\n")
	}
	if in.URL != "" {
		fmt.Fprintf(&sb, "\nReference link: %s\n", in.URL)
	}
	if in.Reference != nil {
		if title := strings.TrimSpace(in.Reference.Title); title != "" {
			fmt.Fprintf(&sb, "Reference title: %s\n", title)
		}
		sb.WriteString("\nReference posting:\n")
		sb.WriteString(in.Reference.Text)
		sb.WriteString("\n")
		if in.Mode == classify.ModeBriefWithLink {
			sb.WriteString("\nWhere the brief and the reference disagree, follow the brief.\n")
		}
	} else if in.Mode == classify.ModeBriefWithLink && in.URL != "" {
		sb.WriteString("\nThe reference link could not be retrieved; rely on the brief.\n")
	}
	return sb.String()
}

// appendAnswers folds follow-up answers into the submission text so retries
// replay them. Answers are keyed by follow-up field id.
func appendAnswers(text string, answers map[string]string, label func(string) string) string {
	keys := make([]string, 0, len(answers))
	for k, v := range answers {
		if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return text
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(text))
	sb.WriteString("\n\nAdditional details:\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "- %s: %s\n", label(k), strings.Join(strings.Fields(answers[k]), " "))
	}
	return strings.TrimRight(sb.String(), "\n")
}
