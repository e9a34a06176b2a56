package invoker

import (
	"fmt"
	"strings"
	"time"

	"jobdraft/internal/providers"
	"jobdraft/internal/services"
)

// ErrConfigurationInvalid is returned when no provider is usable.
var ErrConfigurationInvalid = providers.ErrConfigurationInvalid

// Resolution tells the user what to do about an exhausted invocation.
type Resolution string

const (
	// ResolutionWait means every provider was rate limited; retrying later helps.
	ResolutionWait Resolution = "wait"
	// ResolutionInvestigate means at least one provider failed for another reason.
	ResolutionInvestigate Resolution = "investigate"
)

// Attempt records one provider attempt of an invocation.
type Attempt struct {
	Provider   string        `json:"provider"`
	Class      FailureClass  `json:"class"`
	StatusCode int           `json:"status_code,omitempty"`
	Message    string        `json:"message"`
	Duration   time.Duration `json:"duration"`
}

// CooldownError is returned without contacting any provider while a rate-limit
// cooldown is open.
type CooldownError struct {
	Remaining time.Duration
	ResetAt   time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("provider cooldown active: retry in %s", e.Remaining.Round(time.Second))
}

// Is lets callers match cooldowns with services.ErrRateLimited.
func (e *CooldownError) Is(target error) bool {
	return target == services.ErrRateLimited
}

// ExhaustedError is returned when every active provider failed.
type ExhaustedError struct {
	Attempts []Attempt
}

// AllRateLimited reports whether every attempt failed with a rate limit.
func (e *ExhaustedError) AllRateLimited() bool {
	if len(e.Attempts) == 0 {
		return false
	}
	for _, a := range e.Attempts {
		if a.Class != FailureRateLimited {
			return false
		}
	}
	return true
}

// Resolution returns ResolutionWait when every provider was rate limited.
func (e *ExhaustedError) Resolution() Resolution {
	if e.AllRateLimited() {
		return ResolutionWait
	}
	return ResolutionInvestigate
}

func (e *ExhaustedError) Error() string {
	if e.AllRateLimited() {
		return fmt.Sprintf("all providers rate limited (%d attempted); try again later", len(e.Attempts))
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Provider, a.Class))
	}
	return "all providers failed: " + strings.Join(parts, ", ")
}

// Is matches services.ErrRateLimited when every provider was rate limited and
// services.ErrProvider otherwise.
func (e *ExhaustedError) Is(target error) bool {
	if e.AllRateLimited() {
		return target == services.ErrRateLimited
	}
	return target == services.ErrProvider
}
