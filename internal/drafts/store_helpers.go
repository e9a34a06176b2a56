package drafts

import (
	"database/sql"
	"fmt"
	"time"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*Draft, error) {
	var (
		d             Draft
		status        string
		generatedText sql.NullString
		errorMessage  sql.NullString
		failureKind   sql.NullString
		provider      sql.NullString
		createdAt     string
		updatedAt     string
	)
	if err := row.Scan(
		&d.ID, &d.OwnerID, &d.ConversationID, &d.InputType, &d.RawInput, &status,
		&generatedText, &errorMessage, &failureKind, &provider, &d.Attempts,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	d.Status = Status(status)
	d.GeneratedText = generatedText.String
	d.ErrorMessage = errorMessage.String
	d.FailureKind = FailureKind(failureKind.String)
	d.Provider = provider.String
	var err error
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("draft %s created_at: %w", d.ID, err)
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("draft %s updated_at: %w", d.ID, err)
	}
	return &d, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullableTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
