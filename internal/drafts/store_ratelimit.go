package drafts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"jobdraft/internal/ratelimit"
)

// SaveRateLimitState implements ratelimit.Persister.
func (s *Store) SaveRateLimitState(ctx context.Context, state ratelimit.State) error {
	_, err := s.execWithRetry(ctx, `INSERT INTO rate_limit_state (id, last_limited_at, reset_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_limited_at = excluded.last_limited_at, reset_at = excluded.reset_at`,
		nullableTime(state.LastLimitedAt), nullableTime(state.ResetAt))
	if err != nil {
		return fmt.Errorf("save rate limit state: %w", err)
	}
	return nil
}

// LoadRateLimitState returns the persisted state, or an empty state when none was saved.
func (s *Store) LoadRateLimitState(ctx context.Context) (ratelimit.State, error) {
	ctx = ensureContext(ctx)
	var lastLimited, reset sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT last_limited_at, reset_at FROM rate_limit_state WHERE id = 1").Scan(&lastLimited, &reset)
	if errors.Is(err, sql.ErrNoRows) {
		return ratelimit.State{}, nil
	}
	if err != nil {
		return ratelimit.State{}, fmt.Errorf("load rate limit state: %w", err)
	}
	var state ratelimit.State
	if state.LastLimitedAt, err = parseNullableTime(lastLimited); err != nil {
		return ratelimit.State{}, fmt.Errorf("parse last_limited_at: %w", err)
	}
	if state.ResetAt, err = parseNullableTime(reset); err != nil {
		return ratelimit.State{}, fmt.Errorf("parse reset_at: %w", err)
	}
	return state, nil
}
