package api

import (
	"context"

	"jobdraft/internal/drafts"
)

// DraftReader abstracts draft persistence needed for API queries.
type DraftReader interface {
	List(ctx context.Context, filter drafts.ListFilter) ([]*drafts.Draft, error)
	Stats(ctx context.Context) (drafts.Stats, error)
	Get(ctx context.Context, id string) (*drafts.Draft, error)
	ListEvents(ctx context.Context, filter drafts.EventFilter) ([]drafts.EventRecord, error)
}

// DraftService exposes read-only draft operations returning API DTOs.
type DraftService struct {
	store DraftReader
}

// NewDraftService constructs a DraftService around the provided reader.
func NewDraftService(store DraftReader) *DraftService {
	if store == nil {
		return nil
	}
	return &DraftService{store: store}
}

// List returns drafts matching filter, newest first.
func (s *DraftService) List(ctx context.Context, filter drafts.ListFilter) ([]DraftView, error) {
	if s == nil || s.store == nil {
		return []DraftView{}, nil
	}
	items, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return FromDrafts(items), nil
}

// Stats returns draft counts keyed by status string.
func (s *DraftService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return MergeDraftStats(nil), nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeDraftStats(stats), nil
}

// Describe fetches a single draft.
func (s *DraftService) Describe(ctx context.Context, id string) (*DraftView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	item, err := s.store.Get(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	view := FromDraft(item)
	return &view, nil
}

// Events returns persisted events, newest first.
func (s *DraftService) Events(ctx context.Context, filter drafts.EventFilter) ([]EventView, error) {
	if s == nil || s.store == nil {
		return []EventView{}, nil
	}
	records, err := s.store.ListEvents(ctx, filter)
	if err != nil {
		return nil, err
	}
	return FromEventRecords(records), nil
}
