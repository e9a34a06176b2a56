package drafts

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

const defaultEventLimit = 50

// InsertEvent appends an event log record.
func (s *Store) InsertEvent(ctx context.Context, record EventRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	insert := sq.Insert("events").
		Columns("id", "kind", "source", "draft_id", "message", "details", "created_at").
		Values(record.ID, record.Kind, record.Source, nullableString(record.DraftID),
			nullableString(record.Message), nullableString(record.Details), formatTime(record.CreatedAt))
	if _, err := s.execBuilder(ctx, insert); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListEvents returns the most recent events first.
func (s *Store) ListEvents(ctx context.Context, filter EventFilter) ([]EventRecord, error) {
	ctx = ensureContext(ctx)
	limit := filter.Limit
	if limit == 0 {
		limit = defaultEventLimit
	}
	builder := sq.Select("id", "kind", "source", "draft_id", "message", "details", "created_at").
		From("events").
		OrderBy("created_at DESC").
		Limit(limit)
	if filter.Kind != "" {
		builder = builder.Where(sq.Eq{"kind": filter.Kind})
	}
	if filter.DraftID != "" {
		builder = builder.Where(sq.Eq{"draft_id": filter.DraftID})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var (
			rec                       EventRecord
			draftID, message, details sql.NullString
			createdAt                 string
		)
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Source, &draftID, &message, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		rec.DraftID = draftID.String
		rec.Message = message.String
		rec.Details = details.String
		if rec.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("event %s created_at: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
