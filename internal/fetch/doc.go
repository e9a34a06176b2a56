// Package fetch retrieves reference job postings linked from user input.
//
// A Fetcher performs one GET per URL, parses HTML with goquery, drops
// navigation and script chrome, and returns the readable text capped at the
// configured character budget. Every failure is tagged with
// services.ErrFetch so callers can map it to the draft's fetch failure kind.
package fetch
