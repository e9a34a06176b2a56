// Package notifications pushes draft milestones to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never branch on whether notifications are enabled. Sink adapts a
// Service to the event log: finished drafts, exhausted providers, and drafts
// interrupted by a restart become notifications without the orchestrator
// knowing about ntfy.
package notifications
