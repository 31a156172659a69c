package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"resume-export/internal/bootstrap"
	"resume-export/internal/jobs"
	"resume-export/internal/shared/config"
	"resume-export/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	if err := telemetry.Init(cfg.LogLevel); err != nil {
		telemetry.Error("logger.init_failed", map[string]any{"error": err})
	}
	defer telemetry.Sync()

	if err := run(cfg); err != nil {
		telemetry.Error("worker.exit", map[string]any{"error": err})
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	if app.RedisOpt == nil {
		return errors.New("worker requires REDIS_URL")
	}

	sched, err := newSweepScheduler(ctx, cfg.StaleSweepSpec, app.Sweeper)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	srv, mux := jobs.NewServer(app.RedisOpt, jobs.ServerConfig{
		Concurrency: cfg.WorkerConcurrency,
		Policy:      app.RetryPolicy(),
	}, app.Worker)
	if err := srv.Start(mux); err != nil {
		return err
	}
	telemetry.Info("worker.started", map[string]any{
		"queue":       jobs.QueueExports,
		"concurrency": cfg.WorkerConcurrency,
		"sweep_spec":  cfg.StaleSweepSpec,
	})

	<-ctx.Done()
	telemetry.Info("worker.shutdown", nil)
	srv.Shutdown()
	return nil
}
