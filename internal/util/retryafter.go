package util

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// RateLimitError marks a 429 from a remote API, carrying the wait the
// remote asked for (zero when it sent none).
type RateLimitError struct {
	Op         string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: %s (retry after %s)", e.Op, e.RetryAfter)
	}
	return "rate limited: " + e.Op
}

// RetryAfterDelay extracts the wait from a Retry-After header, which may be
// either a number of seconds or an HTTP date. Returns 0 when absent or
// unparsable.
func RetryAfterDelay(h http.Header) time.Duration {
	retryAfter := h.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
