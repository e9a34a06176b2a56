package testsupport

import (
	"context"
	"testing"

	"jobdraft/internal/config"
	"jobdraft/internal/drafts"
)

// MustOpenStore opens a drafts.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *drafts.Store {
	t.Helper()

	store, err := drafts.Open(cfg)
	if err != nil {
		t.Fatalf("drafts.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewDraft creates a pending draft for tests using the provided store.
func NewDraft(t testing.TB, store *drafts.Store, conversationID, rawInput string) *drafts.Draft {
	t.Helper()

	draft, err := store.Create(context.Background(), drafts.NewDraft{
		OwnerID:        "tester",
		ConversationID: conversationID,
		InputType:      "brief",
		RawInput:       rawInput,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return draft
}
