// Package drafts persists generation drafts and enforces their lifecycle.
//
// A Draft moves pending → processing → completed|failed, with failed →
// processing as the only way back (retry). The Store owns a SQLite database
// (modernc.org/sqlite, WAL mode) that also keeps the event log and the shared
// rate-limit state so the CLI and the API server observe the same cooldown.
//
// Transition methods validate the source status inside a transaction and
// return ErrInvalidTransition, ErrDraftInFlight, or ErrGeneratedTextTooShort
// rather than silently racing a concurrent writer.
package drafts
