package drafts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// BeginProcessing moves a pending or failed draft into processing. The
// previous error is cleared and the attempt counter incremented. At most one
// draft per conversation may be processing.
func (s *Store) BeginProcessing(ctx context.Context, id string) (*Draft, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		status, conversation, err := currentStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkTransition(id, status, StatusProcessing); err != nil {
			return err
		}
		if conversation != "" {
			var busy int
			if err := tx.QueryRowContext(ctx,
				"SELECT COUNT(1) FROM drafts WHERE conversation_id = ? AND status = ? AND id <> ?",
				conversation, string(StatusProcessing), id,
			).Scan(&busy); err != nil {
				return fmt.Errorf("check in-flight drafts: %w", err)
			}
			if busy > 0 {
				return fmt.Errorf("%w (conversation %s)", ErrDraftInFlight, conversation)
			}
		}
		_, err = tx.ExecContext(ctx, `UPDATE drafts
			SET status = ?, error_message = NULL, failure_kind = NULL, generated_text = NULL,
				provider = NULL, attempts = attempts + 1, updated_at = ?
			WHERE id = ?`,
			string(StatusProcessing), formatTime(s.now()), id)
		if err != nil {
			return fmt.Errorf("begin processing: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Complete stores the generated text and marks the draft completed. Text
// shorter than the configured threshold fails the draft instead and returns
// ErrGeneratedTextTooShort.
func (s *Store) Complete(ctx context.Context, id, generatedText, provider string) (*Draft, error) {
	trimmed := strings.TrimSpace(generatedText)
	short := len([]rune(trimmed)) < s.minGeneratedChars
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		status, _, err := currentStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkTransition(id, status, StatusCompleted); err != nil {
			return err
		}
		if short {
			message := fmt.Sprintf("generated text too short (%d characters, need at least %d)", len([]rune(trimmed)), s.minGeneratedChars)
			return s.markFailed(ctx, tx, id, Failure{Kind: FailureTooShort, Message: message}, provider)
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE drafts SET status = ?, generated_text = ?, provider = ?, updated_at = ? WHERE id = ?",
			string(StatusCompleted), trimmed, nullableString(provider), formatTime(s.now()), id)
		if err != nil {
			return fmt.Errorf("complete draft: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	draft, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if short {
		return draft, fmt.Errorf("%w: %s", ErrGeneratedTextTooShort, draft.ErrorMessage)
	}
	return draft, nil
}

// Fail records a failed attempt on a processing draft.
func (s *Store) Fail(ctx context.Context, id string, failure Failure) (*Draft, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		status, _, err := currentStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkTransition(id, status, StatusFailed); err != nil {
			return err
		}
		return s.markFailed(ctx, tx, id, failure, "")
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// FailOrphanedProcessing fails drafts left processing by a previous process.
func (s *Store) FailOrphanedProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		"UPDATE drafts SET status = ?, failure_kind = ?, error_message = ?, updated_at = ? WHERE status = ?",
		string(StatusFailed), string(FailureInterrupted),
		"generation interrupted before completion; retry the draft",
		formatTime(s.now()), string(StatusProcessing))
	if err != nil {
		return 0, fmt.Errorf("fail orphaned drafts: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) markFailed(ctx context.Context, tx *sql.Tx, id string, failure Failure, provider string) error {
	kind := failure.Kind
	if kind == "" {
		kind = FailureProvider
	}
	message := strings.TrimSpace(failure.Message)
	if message == "" {
		message = "generation failed"
	}
	_, err := tx.ExecContext(ctx,
		"UPDATE drafts SET status = ?, failure_kind = ?, error_message = ?, provider = ?, updated_at = ? WHERE id = ?",
		string(StatusFailed), string(kind), message, nullableString(provider), formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("fail draft: %w", err)
	}
	return nil
}
