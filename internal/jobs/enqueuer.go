package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// Enqueuer submits export tasks to the durable queue.
type Enqueuer interface {
	EnqueueExport(ctx context.Context, p Payload) (taskID string, err error)
}

type taskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqEnqueuer enqueues export:render tasks with the retry policy attached.
type AsynqEnqueuer struct {
	client taskClient
	policy RetryPolicy
}

var _ Enqueuer = (*AsynqEnqueuer)(nil)

// NewAsynqEnqueuer wraps an asynq client (or anything with EnqueueContext).
func NewAsynqEnqueuer(client taskClient, policy RetryPolicy) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: client, policy: policy.normalized()}
}

// NewExportTask builds the task for p.
func NewExportTask(p Payload) (*asynq.Task, error) {
	body, err := p.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return asynq.NewTask(TypeExportRender, body), nil
}

// EnqueueExport enqueues p on the exports queue.
func (e *AsynqEnqueuer) EnqueueExport(ctx context.Context, p Payload) (string, error) {
	task, err := NewExportTask(p)
	if err != nil {
		return "", err
	}
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueExports),
		asynq.MaxRetry(e.policy.MaxRetry()),
		asynq.TaskID(p.ExportID),
	)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", TypeExportRender, err)
	}
	return info.ID, nil
}
