package drafts

import (
	"errors"
	"fmt"
)

// DefaultMinGeneratedChars is the shortest generated text accepted for completion.
const DefaultMinGeneratedChars = 200

var (
	// ErrNotFound indicates the draft does not exist.
	ErrNotFound = errors.New("draft not found")
	// ErrInvalidTransition indicates a lifecycle edge that is not allowed.
	ErrInvalidTransition = errors.New("invalid draft transition")
	// ErrDraftInFlight indicates another attempt in the same conversation is processing.
	ErrDraftInFlight = errors.New("a draft is already processing for this conversation")
	// ErrGeneratedTextTooShort indicates the provider response was too short to extract.
	ErrGeneratedTextTooShort = errors.New("generated text too short")
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusFailed:     {StatusProcessing},
}

// CanTransition reports whether the lifecycle allows moving from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(id string, from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("%w: draft %s is %s, cannot move to %s", ErrInvalidTransition, id, from, to)
}
