package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedResponse marks 2xx responses that carried no usable content.
var ErrMalformedResponse = errors.New("malformed provider response")

// StatusError reports a non-2xx response from a provider.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	body := Snippet(e.Body, 200)
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, body)
}

// EmptyContentError is returned when a response parsed cleanly but contained
// no text. It matches ErrMalformedResponse.
type EmptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *EmptyContentError) Error() string {
	return fmt.Sprintf(
		"%s: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.Op,
		e.FinishReason,
		e.Refusal,
		e.Snippet,
	)
}

func (e *EmptyContentError) Is(target error) bool {
	return target == ErrMalformedResponse
}

func malformed(op, detail string) error {
	return fmt.Errorf("%s: %w: %s", op, ErrMalformedResponse, detail)
}

// ParseRetryAfter interprets a Retry-After header value given either as
// delta-seconds or as an HTTP date relative to now.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := when.Sub(now)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
