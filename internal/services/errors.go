package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jobdraft/internal/drafts"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrProvider      = errors.New("provider error")
	ErrRateLimited   = errors.New("rate limited")
	ErrFetch         = errors.New("could not fetch")
	ErrCancelled     = errors.New("cancelled")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later failure classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureKind maps a generation error to the failure kind persisted on the draft.
func FailureKind(err error) drafts.FailureKind {
	switch {
	case err == nil:
		return drafts.FailureProvider
	case errors.Is(err, ErrCancelled):
		return drafts.FailureCancelled
	case errors.Is(err, context.Canceled):
		// The caller or the daemon went away without asking for cancellation.
		return drafts.FailureInterrupted
	case errors.Is(err, ErrConfiguration):
		return drafts.FailureConfiguration
	case errors.Is(err, ErrRateLimited):
		return drafts.FailureRateLimited
	case errors.Is(err, ErrFetch):
		return drafts.FailureFetch
	case errors.Is(err, drafts.ErrGeneratedTextTooShort):
		return drafts.FailureTooShort
	default:
		return drafts.FailureProvider
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
