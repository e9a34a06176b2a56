// Package providers owns the ordered list of text-generation providers and the
// wire clients that talk to them.
//
// NewRegistry validates every configured entry once at startup. Entries with a
// missing or malformed credential are excluded from Active but kept in
// Diagnostics so `jobdraft providers` and the status endpoint can explain why
// a provider is not being used. Credentials are only ever surfaced through
// ProviderConfig.Redacted.
//
// Clients maps a ProviderConfig to the llm client for its kind and caches the
// instance for the life of the process.
package providers
