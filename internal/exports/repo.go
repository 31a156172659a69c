package exports

import (
	"context"
	"time"
)

// Repo persists export records. MarkReady and MarkFailed only apply to a
// PENDING record and report whether they changed anything, so a redelivered
// job cannot overwrite a terminal state.
type Repo interface {
	Create(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	MarkReady(ctx context.Context, id, storageKey string, expiresAt, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, id, reason string, now time.Time) (bool, error)
	CountPendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// FailPendingOlderThan moves every record PENDING since before cutoff to
	// FAILED and returns how many changed.
	FailPendingOlderThan(ctx context.Context, cutoff time.Time, reason string, now time.Time) (int64, error)
}
