// Package extract turns generated job-description text into a structured
// Document: title, summary, catalogued sections, sector and SDG tags, and
// clarity, reading-level, and DEI scores.
//
// Extraction is deterministic and total. Any input, including empty or
// garbage text, yields a Document with a title and at least one section.
// Vocabularies are embedded YAML and can be replaced at runtime through
// LoadVocabulary. Render helpers produce canonical markdown and sanitized
// HTML (goldmark) for API and CLI output.
package extract
