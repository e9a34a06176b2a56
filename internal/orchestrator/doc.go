// Package orchestrator composes classification, reference fetching, prompt
// construction, resilient generation, and extraction into the draft
// lifecycle.
//
// Prepare classifies a submission and either asks for clarification or
// follow-up answers, or creates a pending draft. Generate drives one draft
// through processing to completed or failed, mapping every failure onto a
// draft failure kind. At most one attempt per draft runs at a time, and
// in-flight attempts can be cancelled.
package orchestrator
