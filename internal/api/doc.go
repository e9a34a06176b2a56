// Package api defines wire-format types and converters for the HTTP API and
// the CLI. It translates drafts, documents, classifications, and events into
// transport-friendly DTOs so consumers can render them without coupling to
// internal types.
//
// # Key Types
//
// DraftView: transport representation of a draft with status, failure kind,
// provider, and attempt count.
//
// DocumentView: an extracted Document with sections, tags, and scores, plus
// optional canonical markdown.
//
// OutcomeView: the result of a submission. Either clarification/follow-ups
// (no draft yet) or the draft with its document.
//
// StatusView: provider diagnostics, cooldown, in-flight drafts, and counts.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Enums
// (drafts.Status, drafts.FailureKind, classify.Mode) are exposed as strings.
// Timestamps use RFC3339 with milliseconds.
package api
