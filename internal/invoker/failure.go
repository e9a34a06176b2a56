package invoker

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jobdraft/internal/llm"
)

// FailureClass groups provider failures by what the user can do about them.
type FailureClass string

const (
	FailureRateLimited FailureClass = "rate_limited"
	FailureServer      FailureClass = "server"
	FailureMalformed   FailureClass = "malformed"
	FailureClient      FailureClass = "client"
)

// MinContentChars is the shortest response accepted as a generation.
const MinContentChars = 20

var rateLimitSignatures = []string{
	"rate limit",
	"rate_limit",
	"ratelimit",
	"too many requests",
	"quota",
	"resource_exhausted",
}

// Classify maps one attempt error to its failure class.
func Classify(err error) FailureClass {
	if err == nil {
		return ""
	}
	if hasRateLimitSignature(err.Error()) {
		return FailureRateLimited
	}
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return FailureRateLimited
		case statusErr.StatusCode >= http.StatusInternalServerError:
			return FailureServer
		default:
			return FailureClient
		}
	}
	if errors.Is(err, llm.ErrMalformedResponse) {
		return FailureMalformed
	}
	// Network errors, attempt timeouts, and anything unrecognised.
	return FailureServer
}

func hasRateLimitSignature(message string) bool {
	lower := strings.ToLower(message)
	for _, sig := range rateLimitSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

func statusCode(err error) int {
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func retryAfter(err error) time.Duration {
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return statusErr.RetryAfter
	}
	return 0
}

func checkContent(result *llm.Result) error {
	if result == nil {
		return errors.Join(llm.ErrMalformedResponse, errors.New("nil result"))
	}
	if len([]rune(strings.TrimSpace(result.Content))) < MinContentChars {
		return &shortContentError{length: len([]rune(strings.TrimSpace(result.Content)))}
	}
	return nil
}

type shortContentError struct {
	length int
}

func (e *shortContentError) Error() string {
	return fmt.Sprintf("response content too short (%d characters, need %d)", e.length, MinContentChars)
}

func (e *shortContentError) Is(target error) bool {
	return target == llm.ErrMalformedResponse
}
