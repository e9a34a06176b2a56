// Package logging assembles structured slog loggers and formatting helpers used
// across jobdraft.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with draft IDs, providers, failure classes, conversation IDs, stages,
// and correlation IDs. Records go to the console and to a JSON archive. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
