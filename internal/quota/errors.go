package quota

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrQuotaExceeded      = errors.New("daily upload quota exceeded")
	ErrPlanLimitsMissing  = errors.New("plan limits missing")
	ErrExportLimitReached = errors.New("export limit reached")
	ErrInvalidAmount      = errors.New("reservation amount must not be negative")
)

// RateLimitError carries how long the caller should wait before retrying.
type RateLimitError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %s (retry after %s)", ErrRateLimitExceeded, e.Key, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimitExceeded }

// RetryAfter extracts the wait hint from err, or 0.
func RetryAfter(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}
