// Package services defines shared utilities consumed by the generation
// pipeline stages and their collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp draft IDs, conversation IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into the failure kinds persisted on drafts.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
