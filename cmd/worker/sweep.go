package main

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"resume-export/internal/shared/telemetry"
)

type sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// newSweepScheduler runs s on spec. Overlapping runs are skipped.
func newSweepScheduler(ctx context.Context, spec string, s sweeper) (*cron.Cron, error) {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() {
		_, _ = s.Sweep(ctx)
	}); err != nil {
		return nil, fmt.Errorf("cron.AddFunc %q: %w", spec, err)
	}
	return c, nil
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	telemetry.L().Sugar().Debugw("cron."+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	telemetry.L().Sugar().Errorw("cron."+msg, append(keysAndValues, "error", err.Error())...)
}
