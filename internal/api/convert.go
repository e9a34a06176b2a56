package api

import (
	"math"
	"time"

	"jobdraft/internal/classify"
	"jobdraft/internal/drafts"
	"jobdraft/internal/eventlog"
	"jobdraft/internal/extract"
	"jobdraft/internal/llm"
	"jobdraft/internal/orchestrator"
	"jobdraft/internal/providers"
	"jobdraft/internal/ratelimit"
)

// FromDraft converts a draft record to its API representation.
func FromDraft(draft *drafts.Draft) DraftView {
	if draft == nil {
		return DraftView{}
	}
	return DraftView{
		ID:             draft.ID,
		Title:          draft.DisplayTitle(),
		OwnerID:        draft.OwnerID,
		ConversationID: draft.ConversationID,
		InputType:      draft.InputType,
		RawInput:       draft.RawInput,
		Status:         string(draft.Status),
		GeneratedText:  draft.GeneratedText,
		ErrorMessage:   draft.ErrorMessage,
		FailureKind:    string(draft.FailureKind),
		Provider:       draft.Provider,
		Attempts:       draft.Attempts,
		Retryable:      draft.Retryable(),
		CreatedAt:      formatTimestamp(draft.CreatedAt),
		UpdatedAt:      formatTimestamp(draft.UpdatedAt),
	}
}

// FromDrafts converts a slice, skipping nil entries.
func FromDrafts(items []*drafts.Draft) []DraftView {
	out := make([]DraftView, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, FromDraft(item))
	}
	return out
}

// FromDocument converts an extracted document. Nil tag slices become empty
// arrays so JSON consumers never see null.
func FromDocument(draftID string, doc *extract.Document) DocumentView {
	if doc == nil {
		return DocumentView{DraftID: draftID, Sections: []SectionView{}, CategoryTags: []string{}, SDGTags: []string{}}
	}
	view := DocumentView{
		DraftID:      draftID,
		Title:        doc.Title,
		Summary:      doc.Summary,
		Sections:     make([]SectionView, 0, len(doc.Sections)),
		CategoryTags: nonNil(doc.CategoryTags),
		SDGTags:      nonNil(doc.SDGTags),
		Scores: ScoresView{
			Clarity:         doc.Scores.Clarity,
			DEIFriendliness: doc.Scores.DEIFriendliness,
			ReadingLevel:    doc.Scores.ReadingLevel,
		},
	}
	for _, section := range doc.Sections {
		view.Sections = append(view.Sections, SectionView{ID: section.ID, Title: section.Title, Content: section.Content})
	}
	return view
}

// FromClassification converts a classifier result.
func FromClassification(cls classify.Classification) ClassificationView {
	return ClassificationView{
		Mode:       string(cls.Mode),
		Confidence: cls.Confidence,
		URL:        cls.URL,
		BriefText:  cls.BriefText,
		Reliable:   cls.Reliable(),
	}
}

// FromAdvice combines a classification with its follow-up advice. Unreliable
// classifications carry the clarifying question instead.
func FromAdvice(cls classify.Classification, advice classify.Advice) AdviceView {
	view := AdviceView{
		Classification:  FromClassification(cls),
		Questions:       nonNil(advice.Questions),
		Missing:         nonNil(advice.Missing),
		MissingOptional: advice.MissingOptional,
	}
	if !cls.Reliable() {
		view.Clarification = classify.ClarifyingQuestion(cls)
	}
	return view
}

// FromOutcome converts an orchestrator outcome.
func FromOutcome(outcome *orchestrator.Outcome) OutcomeView {
	if outcome == nil {
		return OutcomeView{}
	}
	view := OutcomeView{
		Classification: FromClassification(outcome.Classification),
		Clarification:  outcome.Clarification,
		FollowUps:      outcome.FollowUps,
		Missing:        outcome.Missing,
		NeedsInput:     outcome.NeedsInput(),
		Provider:       outcome.Provider,
		Usage:          fromUsage(outcome.Usage),
	}
	if outcome.Draft != nil {
		draft := FromDraft(outcome.Draft)
		view.Draft = &draft
	}
	if outcome.Document != nil {
		id := ""
		if outcome.Draft != nil {
			id = outcome.Draft.ID
		}
		doc := FromDocument(id, outcome.Document)
		view.Document = &doc
	}
	return view
}

func fromUsage(usage *llm.Usage) *UsageView {
	if usage == nil {
		return nil
	}
	return &UsageView{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}
}

// FromDiagnostics converts provider registry diagnostics.
func FromDiagnostics(diags []providers.Diagnostic) []ProviderView {
	out := make([]ProviderView, 0, len(diags))
	for _, d := range diags {
		out = append(out, ProviderView{
			Name:       d.Name,
			Kind:       d.Kind,
			Model:      d.Model,
			Priority:   d.Priority,
			Credential: d.Credential,
			Valid:      d.Valid,
			Reason:     d.Reason,
		})
	}
	return out
}

// FromRateLimitState summarizes the tracker state at now. Remaining time is
// rounded up to whole seconds.
func FromRateLimitState(state ratelimit.State, now time.Time) CooldownView {
	view := CooldownView{Active: state.Active(now)}
	if state.ResetAt != nil {
		view.ResetAt = formatTimestamp(*state.ResetAt)
		if view.Active {
			view.RemainingSeconds = int(math.Ceil(state.ResetAt.Sub(now).Seconds()))
		}
	}
	if state.LastLimitedAt != nil {
		view.LastLimitedAt = formatTimestamp(*state.LastLimitedAt)
	}
	return view
}

// FromEvent converts an event.
func FromEvent(ev eventlog.Event) EventView {
	return EventView{
		ID:        ev.ID,
		Kind:      ev.Kind,
		Source:    ev.Source,
		DraftID:   ev.DraftID,
		Message:   ev.Message,
		Details:   ev.Details,
		CreatedAt: formatTimestamp(ev.CreatedAt),
	}
}

// FromEventRecords converts persisted event records.
func FromEventRecords(records []drafts.EventRecord) []EventView {
	out := make([]EventView, 0, len(records))
	for _, rec := range records {
		out = append(out, FromEvent(eventlog.FromRecord(rec)))
	}
	return out
}

// MergeDraftStats returns counts for every status, including zeroes.
func MergeDraftStats(stats drafts.Stats) map[string]int {
	out := make(map[string]int, len(drafts.AllStatuses()))
	for _, status := range drafts.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
