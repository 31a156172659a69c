package quota

import (
	"context"
	"fmt"
	"time"

	"resume-export/internal/counter"
)

// Rate-limited actions.
const (
	ActionExportEnqueue  = "export:enqueue"
	ActionExportDownload = "export:download"
	ActionExportStatus   = "export:status"
)

// RateLimitKey builds the counter key for action and userID.
func RateLimitKey(action, userID string) string {
	return "ratelimit:" + action + ":" + userID
}

// RateLimiter is a fixed-window counter over a shared counter store, so the
// window holds across every API process.
type RateLimiter struct {
	Store counter.Store
}

// NewRateLimiter builds a RateLimiter over store.
func NewRateLimiter(store counter.Store) *RateLimiter {
	return &RateLimiter{Store: store}
}

// Allow counts one call against key. The window starts on the first call and
// rejected calls still count; nothing is rolled back.
func (l *RateLimiter) Allow(ctx context.Context, key string, maxCount int64, window time.Duration) error {
	n, err := l.Store.IncrWindow(ctx, key, window)
	if err != nil {
		return fmt.Errorf("rate limit %s: %w", key, err)
	}
	if n > maxCount {
		retry, err := l.Store.TTL(ctx, key)
		if err != nil || retry <= 0 {
			retry = window
		}
		return &RateLimitError{Key: key, RetryAfter: retry}
	}
	return nil
}
