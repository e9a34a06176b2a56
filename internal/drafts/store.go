package drafts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// Create inserts a new pending draft and returns it.
func (s *Store) Create(ctx context.Context, input NewDraft) (*Draft, error) {
	if strings.TrimSpace(input.RawInput) == "" {
		return nil, errors.New("create draft: raw input is empty")
	}
	now := s.now().UTC()
	draft := &Draft{
		ID:             uuid.NewString(),
		OwnerID:        strings.TrimSpace(input.OwnerID),
		ConversationID: strings.TrimSpace(input.ConversationID),
		InputType:      strings.TrimSpace(input.InputType),
		RawInput:       input.RawInput,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	insert := sq.Insert("drafts").
		Columns("id", "owner_id", "conversation_id", "input_type", "raw_input", "status", "attempts", "created_at", "updated_at").
		Values(draft.ID, draft.OwnerID, draft.ConversationID, draft.InputType, draft.RawInput, string(draft.Status), 0, formatTime(now), formatTime(now))
	if _, err := s.execBuilder(ctx, insert); err != nil {
		return nil, fmt.Errorf("insert draft: %w", err)
	}
	return draft, nil
}

// Get fetches a draft by identifier.
func (s *Store) Get(ctx context.Context, id string) (*Draft, error) {
	ctx = ensureContext(ctx)
	query, args, err := sq.Select(draftColumns...).From("drafts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	draft, err := scanDraft(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return draft, nil
}

// List returns drafts newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Draft, error) {
	ctx = ensureContext(ctx)
	builder := sq.Select(draftColumns...).From("drafts").OrderBy("created_at DESC", "id")
	if len(filter.Statuses) > 0 {
		values := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			values = append(values, string(status))
		}
		builder = builder.Where(sq.Eq{"status": values})
	}
	if filter.OwnerID != "" {
		builder = builder.Where(sq.Eq{"owner_id": filter.OwnerID})
	}
	if filter.ConversationID != "" {
		builder = builder.Where(sq.Eq{"conversation_id": filter.ConversationID})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var out []*Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		out = append(out, draft)
	}
	return out, rows.Err()
}

// Stats counts drafts per status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	query, args, err := sq.Select("status", "COUNT(*)").From("drafts").GroupBy("status").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("draft stats: %w", err)
	}
	defer rows.Close()

	stats := make(Stats, len(orderedStatuses))
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// ProcessingIn returns the draft currently processing in conversation, or nil
// when the conversation is idle. Drafts without a conversation never block.
func (s *Store) ProcessingIn(ctx context.Context, conversation string) (*Draft, error) {
	conversation = strings.TrimSpace(conversation)
	if conversation == "" {
		return nil, nil
	}
	list, err := s.List(ctx, ListFilter{
		Statuses:       []Status{StatusProcessing},
		ConversationID: conversation,
		Limit:          1,
	})
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// Delete removes a draft. Drafts that are processing cannot be deleted.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		status, _, err := currentStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if status == StatusProcessing {
			return fmt.Errorf("%w: cancel draft %s before deleting it", ErrDraftInFlight, id)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM drafts WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete draft: %w", err)
		}
		return nil
	})
}

func currentStatus(ctx context.Context, tx *sql.Tx, id string) (Status, string, error) {
	var status, conversation string
	err := tx.QueryRowContext(ctx, "SELECT status, conversation_id FROM drafts WHERE id = ?", id).Scan(&status, &conversation)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return "", "", fmt.Errorf("read draft status: %w", err)
	}
	return Status(status), conversation, nil
}
