package exports

import (
	"context"
	"time"

	"resume-export/internal/shared/metrics"
	"resume-export/internal/shared/telemetry"
)

// StaleSweeper watches records stuck in PENDING, which means a job was lost
// between enqueue and the worker or its final FAILED write did not land.
// Records older than FailAfter are failed; the rest of the stale ones are
// only reported.
type StaleSweeper struct {
	Repo  Repo
	After time.Duration
	// FailAfter should exceed the whole retry schedule. Zero disables it.
	FailAfter time.Duration
	Now       func() time.Time
}

// Sweep fails abandoned records, then counts PENDING records older than
// After and publishes the count.
func (s *StaleSweeper) Sweep(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}

	if s.FailAfter > 0 {
		failCutoff := now.Add(-s.FailAfter)
		failed, err := s.Repo.FailPendingOlderThan(ctx, failCutoff, failureReason(context.DeadlineExceeded), now)
		if err != nil {
			telemetry.Error("export.sweep_failed", map[string]any{"error": err})
			return 0, err
		}
		if failed > 0 {
			metrics.AddExportsFailed("abandoned", failed)
			telemetry.Warn("export.stale_failed", map[string]any{
				"count":             failed,
				"cutoff":            failCutoff,
				"status_transition": "PENDING->FAILED",
			})
		}
	}

	after := s.After
	if after <= 0 {
		after = 30 * time.Minute
	}
	cutoff := now.Add(-after)
	n, err := s.Repo.CountPendingOlderThan(ctx, cutoff)
	if err != nil {
		telemetry.Error("export.sweep_failed", map[string]any{"error": err})
		return 0, err
	}
	metrics.SetStalePending(n)
	if n > 0 {
		telemetry.Warn("export.stale_pending", map[string]any{"count": n, "cutoff": cutoff})
	}
	return n, nil
}
