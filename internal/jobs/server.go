package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"resume-export/internal/shared/telemetry"
)

// Processor runs one export delivery.
type Processor interface {
	ProcessExport(ctx context.Context, p Payload, attempt Attempt) error
}

// ServerConfig configures the asynq worker pool.
type ServerConfig struct {
	Concurrency int
	Policy      RetryPolicy
}

// NewServer builds the asynq server and a mux routing export tasks to proc.
func NewServer(redisOpt asynq.RedisConnOpt, cfg ServerConfig, proc Processor) (*asynq.Server, *asynq.ServeMux) {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	policy := cfg.Policy.normalized()
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:    concurrency,
		Queues:         map[string]int{QueueExports: 1},
		RetryDelayFunc: policy.RetryDelayFunc(),
		ErrorHandler:   asynq.ErrorHandlerFunc(logTaskError),
		Logger:         zapAsynqLogger{},
	})

	mux := asynq.NewServeMux()
	mux.Handle(TypeExportRender, RenderHandler(proc))
	return server, mux
}

// RenderHandler decodes the payload and hands it to proc with attempt info.
// Malformed payloads are not retried.
func RenderHandler(proc Processor) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		p, err := DecodePayload(t.Payload())
		if err != nil {
			telemetry.Error("export.job.bad_payload", map[string]any{
				"task_type": t.Type(),
				"error":     err,
			})
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return proc.ProcessExport(ctx, p, attemptFromContext(ctx))
	})
}

func logTaskError(ctx context.Context, t *asynq.Task, err error) {
	attempt := attemptFromContext(ctx)
	fields := map[string]any{
		"task_id":   attempt.TaskID,
		"task_type": t.Type(),
		"attempt":   attempt.Number(),
		"max_retry": attempt.MaxRetry,
		"error":     err,
	}
	if attempt.Final() || errors.Is(err, asynq.SkipRetry) {
		telemetry.Error("export.job.dead", fields)
		return
	}
	telemetry.Warn("export.job.retry", fields)
}
