package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// RetryPolicy bounds delivery attempts and spaces them exponentially.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
}

// DefaultRetryPolicy is three attempts, 10s then 20s apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, InitialDelay: 10 * time.Second}
}

func (p RetryPolicy) normalized() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.Attempts <= 0 {
		p.Attempts = d.Attempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = d.InitialDelay
	}
	return p
}

// MaxRetry is the number of redeliveries after the first attempt.
func (p RetryPolicy) MaxRetry() int {
	return p.normalized().Attempts - 1
}

// Delay is the wait before retry number retried+1; retried counts the
// retries that already happened.
func (p RetryPolicy) Delay(retried int) time.Duration {
	p = p.normalized()
	if retried < 0 {
		retried = 0
	}
	if retried > 20 {
		retried = 20
	}
	return p.InitialDelay << uint(retried)
}

// Budget is the total backoff a task can spend waiting between attempts.
func (p RetryPolicy) Budget() time.Duration {
	var total time.Duration
	for i := 0; i < p.MaxRetry(); i++ {
		total += p.Delay(i)
	}
	return total
}

// RetryDelayFunc adapts the policy to asynq's server config.
func (p RetryPolicy) RetryDelayFunc() asynq.RetryDelayFunc {
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		return p.Delay(n)
	}
}

// Attempt describes where a delivery sits in the retry sequence.
type Attempt struct {
	TaskID   string
	Retried  int
	MaxRetry int
}

// Number is the 1-based attempt number.
func (a Attempt) Number() int { return a.Retried + 1 }

// Final reports whether a failure now exhausts the retries.
func (a Attempt) Final() bool { return a.Retried >= a.MaxRetry }

// attemptFromContext reads the asynq delivery metadata. Swapped in tests.
var attemptFromContext = func(ctx context.Context) Attempt {
	var a Attempt
	a.TaskID, _ = asynq.GetTaskID(ctx)
	a.Retried, _ = asynq.GetRetryCount(ctx)
	a.MaxRetry, _ = asynq.GetMaxRetry(ctx)
	return a
}

// Permanent marks err so asynq archives the task instead of retrying it.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}
