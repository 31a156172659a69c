package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resume-export/internal/counter"
	"resume-export/internal/plans"
	"resume-export/internal/shared/telemetry"
)

const minQuotaTTL = 60 * time.Second

// LimitsReader resolves per-plan limits.
type LimitsReader interface {
	LimitsForPlan(ctx context.Context, planID string) (plans.Limits, error)
}

// ExportCounter counts a user's export records.
type ExportCounter interface {
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// Reservation is a successful claim against the daily byte quota.
type Reservation struct {
	Key          string
	Bytes        int64
	CurrentBytes int64
	LimitBytes   int64
}

// Enforcer applies the daily byte quota and the export-count ceiling.
type Enforcer struct {
	Counter counter.Store
	Limits  LimitsReader
	Exports ExportCounter
	Now     func() time.Time
}

// UploadQuotaKey is the per-user, per-UTC-day counter key.
func UploadQuotaKey(userID string, day time.Time) string {
	return "quota:upload:" + userID + ":" + day.UTC().Format("2006-01-02")
}

// TTLUntilMidnight returns the time left until the next UTC midnight, never
// less than a minute.
func TTLUntilMidnight(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	ttl := next.Sub(now)
	if ttl < minQuotaTTL {
		return minQuotaTTL
	}
	return ttl
}

func (e *Enforcer) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Enforcer) limits(ctx context.Context, planID string) (plans.Limits, error) {
	l, err := e.Limits.LimitsForPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, plans.ErrLimitsNotFound) {
			return plans.Limits{}, fmt.Errorf("%w: plan %s", ErrPlanLimitsMissing, planID)
		}
		return plans.Limits{}, err
	}
	return l, nil
}

// Reserve adds bytes to today's counter and checks the total against the plan.
// The increment and TTL refresh happen atomically in the counter store; when
// the total overshoots, the increment is taken back before ErrQuotaExceeded
// is returned.
func (e *Enforcer) Reserve(ctx context.Context, userID, planID string, bytes int64) (Reservation, error) {
	if bytes < 0 {
		return Reservation{}, ErrInvalidAmount
	}
	l, err := e.limits(ctx, planID)
	if err != nil {
		return Reservation{}, err
	}
	limitBytes := l.DailyUploadBytes()
	now := e.now()
	key := UploadQuotaKey(userID, now)

	total, err := e.Counter.IncrByWithTTL(ctx, key, bytes, TTLUntilMidnight(now))
	if err != nil {
		return Reservation{}, fmt.Errorf("reserve quota: %w", err)
	}
	if total > limitBytes {
		if _, derr := e.Counter.DecrBy(ctx, key, bytes); derr != nil {
			telemetry.Error("quota.rollback_failed", map[string]any{
				"user_id": userID,
				"key":     key,
				"bytes":   bytes,
				"error":   derr,
			})
		}
		return Reservation{}, fmt.Errorf("%w: %d of %d bytes used", ErrQuotaExceeded, total-bytes, limitBytes)
	}
	return Reservation{Key: key, Bytes: bytes, CurrentBytes: total, LimitBytes: limitBytes}, nil
}

// Rollback returns a successful reservation. Best effort: failures are logged.
func (e *Enforcer) Rollback(ctx context.Context, r Reservation) {
	if r.Key == "" || r.Bytes == 0 {
		return
	}
	if _, err := e.Counter.DecrBy(ctx, r.Key, r.Bytes); err != nil {
		telemetry.Error("quota.rollback_failed", map[string]any{
			"key":   r.Key,
			"bytes": r.Bytes,
			"error": err,
		})
	}
}

// AssertWithinExportLimit fails when the user already holds as many export
// records as the plan allows. It is a point-in-time check; two concurrent
// requests may both pass.
func (e *Enforcer) AssertWithinExportLimit(ctx context.Context, userID, planID string) error {
	l, err := e.limits(ctx, planID)
	if err != nil {
		return err
	}
	count, err := e.Exports.CountByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("count exports: %w", err)
	}
	if count >= l.MaxExports {
		return fmt.Errorf("%w: %d of %d", ErrExportLimitReached, count, l.MaxExports)
	}
	return nil
}

// Check fails with ErrQuotaExceeded when today's budget is already spent. It
// does not mutate the counter; the async path uses it before enqueueing so a
// user with no budget left is told now rather than by a FAILED record later.
func (e *Enforcer) Check(ctx context.Context, userID, planID string) (Reservation, error) {
	l, err := e.limits(ctx, planID)
	if err != nil {
		return Reservation{}, err
	}
	key := UploadQuotaKey(userID, e.now())
	current, err := e.Counter.Get(ctx, key)
	if err != nil {
		return Reservation{}, fmt.Errorf("check quota: %w", err)
	}
	limitBytes := l.DailyUploadBytes()
	if current >= limitBytes {
		return Reservation{}, fmt.Errorf("%w: %d of %d bytes used", ErrQuotaExceeded, current, limitBytes)
	}
	return Reservation{Key: key, CurrentBytes: current, LimitBytes: limitBytes}, nil
}
