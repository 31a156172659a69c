package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"resume-export/internal/shared/telemetry"
)

// InlineEnqueuer runs export jobs in-process with the same retry policy as the
// durable queue. Jobs do not survive a restart; it is meant for dev setups
// without Redis.
type InlineEnqueuer struct {
	proc   Processor
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
	wg     sync.WaitGroup
}

var _ Enqueuer = (*InlineEnqueuer)(nil)

// NewInlineEnqueuer builds an InlineEnqueuer that hands jobs to proc.
func NewInlineEnqueuer(proc Processor, policy RetryPolicy) *InlineEnqueuer {
	return &InlineEnqueuer{proc: proc, policy: policy.normalized(), sleep: sleepCtx}
}

// EnqueueExport starts p in the background and returns immediately.
func (e *InlineEnqueuer) EnqueueExport(ctx context.Context, p Payload) (string, error) {
	if e.proc == nil {
		return "", errors.New("inline enqueuer has no processor")
	}
	taskID := p.ExportID
	ctx = context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(ctx, taskID, p)
	}()
	return taskID, nil
}

// Wait blocks until every started job has finished.
func (e *InlineEnqueuer) Wait() {
	e.wg.Wait()
}

func (e *InlineEnqueuer) run(ctx context.Context, taskID string, p Payload) {
	maxRetry := e.policy.MaxRetry()
	for retried := 0; ; retried++ {
		attempt := Attempt{TaskID: taskID, Retried: retried, MaxRetry: maxRetry}
		err := e.proc.ProcessExport(ctx, p, attempt)
		if err == nil {
			return
		}
		if errors.Is(err, asynq.SkipRetry) || attempt.Final() {
			telemetry.Error("export.job.dead", map[string]any{
				"task_id": taskID,
				"attempt": attempt.Number(),
				"error":   err,
			})
			return
		}
		telemetry.Warn("export.job.retry", map[string]any{
			"task_id": taskID,
			"attempt": attempt.Number(),
			"error":   err,
		})
		if err := e.sleep(ctx, e.policy.Delay(retried)); err != nil {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
