package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resume-export/internal/counter"
	"resume-export/internal/exports"
	"resume-export/internal/jobs"
	"resume-export/internal/notify"
	"resume-export/internal/plans"
	"resume-export/internal/quota"
	"resume-export/internal/render"
	"resume-export/internal/services/health"
	"resume-export/internal/shared/auth"
	"resume-export/internal/shared/config"
	"resume-export/internal/shared/server"
	"resume-export/internal/shared/storage/db"
	"resume-export/internal/shared/storage/object"
	localstore "resume-export/internal/shared/storage/object/local"
	s3store "resume-export/internal/shared/storage/object/s3"
	"resume-export/internal/shared/telemetry"
	"resume-export/internal/snapshots"
)

// App holds shared dependencies for the API, worker and lambda entrypoints.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Redis    *redis.Client
	RedisOpt asynq.RedisConnOpt
	Counter  counter.Store
	Store    object.ObjectStore
	Renderer render.Renderer
	Notifier notify.Notifier

	Plans         plans.Repo
	Snapshots     *snapshots.Service
	ExportsRepo   exports.Repo
	Enforcer      *quota.Enforcer
	RateLimiter   *quota.RateLimiter
	ExportService *exports.Service
	Worker        *exports.Worker
	Sweeper       *exports.StaleSweeper
	Handler       *exports.Handler
	Health        *health.Service

	queueClient *asynq.Client
}

// Build prepares every dependency and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	// Only dev and local may run on the built-in signing key.
	verifier, err := auth.NewVerifier(cfg.JWTSecret, !config.IsDevLike(cfg.Env))
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg}

	if app.DB, err = buildDB(ctx, cfg); err != nil {
		return nil, err
	}
	if err := app.buildRedis(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if app.Store, err = buildStore(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}
	if app.Renderer, err = buildRenderer(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}
	if app.Notifier, err = buildNotifier(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.buildServices(); err != nil {
		app.Close()
		return nil, err
	}

	deps := server.RouterDeps{
		Config:   cfg,
		Exports:  app.Handler,
		Verifier: verifier,
		Limiter:  app.RateLimiter,
		Health:   app.Health,
	}
	app.Router = server.NewRouter(deps)
	return app, nil
}

// Close releases connections opened by Build.
func (a *App) Close() {
	if a.queueClient != nil {
		_ = a.queueClient.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_missing", map[string]any{"fallback": "memory"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB   *sql.DB
		err     error
		profile = db.DetectProfile()
	)
	if profile == db.ProfileLambda {
		sqlDB, err = db.Shared(ctx, cfg.DatabaseURL, db.PoolFor(profile, cfg))
	} else {
		sqlDB, err = db.Open(ctx, cfg.DatabaseURL, db.PoolFor(profile, cfg))
	}
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_connect_failed", map[string]any{"fallback": "memory", "error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func (a *App) buildRedis(ctx context.Context) error {
	url := strings.TrimSpace(a.Config.RedisURL)
	if url == "" {
		if !config.IsDevLike(a.Config.Env) {
			return fmt.Errorf("REDIS_URL is required")
		}
		telemetry.Warn("bootstrap.redis_missing", map[string]any{"fallback": "memory"})
		a.Counter = counter.NewMemoryStore(nil)
		return nil
	}

	rdb, err := counter.NewRedisClient(ctx, url)
	if err != nil {
		return err
	}
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		_ = rdb.Close()
		return fmt.Errorf("parse redis uri for queue: %w", err)
	}
	a.Redis = rdb
	a.RedisOpt = opt
	a.Counter = counter.NewRedisStore(rdb)
	a.queueClient = asynq.NewClient(opt)
	return nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Config{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			KMSKeyID:        cfg.SSEKMSKeyID,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			SignedURLs:      cfg.S3SignedURLs,
		})
	default:
		return localstore.New(cfg.LocalStoreDir, ""), nil
	}
}

func buildRenderer(ctx context.Context, cfg config.Config) (render.Renderer, error) {
	if strings.TrimSpace(cfg.RendererURL) == "" {
		if !config.IsDevLike(cfg.Env) {
			return nil, fmt.Errorf("RENDERER_URL is required")
		}
		return render.Placeholder{}, nil
	}
	return render.NewHTTPRenderer(ctx, render.HTTPConfig{
		URL:          cfg.RendererURL,
		ClientID:     cfg.RendererClientID,
		ClientSecret: cfg.RendererClientSecret,
		TokenURL:     cfg.RendererTokenURL,
		Timeout:      cfg.RendererTimeout,
	})
}

func buildNotifier(ctx context.Context, cfg config.Config) (notify.Notifier, error) {
	if strings.TrimSpace(cfg.NotifySQSQueueURL) == "" {
		return notify.LogNotifier{}, nil
	}
	return notify.NewSQSNotifier(ctx, cfg.AWSRegion, cfg.NotifySQSQueueURL)
}

func (a *App) buildServices() error {
	var (
		snapRepo    snapshots.Repo
		resumes     snapshots.ResumeSource
		exportsRepo exports.Repo
	)
	if a.DB != nil {
		a.Plans = &plans.PGRepo{DB: a.DB}
		snapRepo = &snapshots.PGRepo{DB: a.DB}
		resumes = &snapshots.PGResumes{DB: a.DB}
		exportsRepo = &exports.PGRepo{DB: a.DB}
	} else {
		a.Plans = plans.NewSeededMemoryRepo()
		snapRepo = snapshots.NewMemoryRepo()
		mem := snapshots.NewMemoryResumes()
		seedDevResume(mem)
		resumes = mem
		exportsRepo = exports.NewMemoryRepo()
	}
	a.ExportsRepo = exportsRepo
	a.Snapshots = &snapshots.Service{Resumes: resumes, Repo: snapRepo}
	a.Enforcer = &quota.Enforcer{Counter: a.Counter, Limits: a.Plans, Exports: exportsRepo}
	a.RateLimiter = quota.NewRateLimiter(a.Counter)

	a.Worker = &exports.Worker{
		Repo:      exportsRepo,
		Plans:     a.Plans,
		Snapshots: a.Snapshots,
		Quota:     a.Enforcer,
		Renderer:  a.Renderer,
		Store:     a.Store,
		Notifier:  a.Notifier,
	}

	policy := a.RetryPolicy()
	var queue jobs.Enqueuer
	if a.queueClient != nil {
		queue = jobs.NewAsynqEnqueuer(a.queueClient, policy)
	} else if config.IsDevLike(a.Config.Env) {
		queue = jobs.NewInlineEnqueuer(a.Worker, policy)
	}

	a.ExportService = &exports.Service{
		Repo:        exportsRepo,
		Plans:       a.Plans,
		Snapshots:   a.Snapshots,
		Quota:       a.Enforcer,
		RateLimiter: a.RateLimiter,
		Limits: exports.RateLimits{
			Enqueue:  a.Config.RateLimitEnqueue,
			Download: a.Config.RateLimitDownload,
			Status:   a.Config.RateLimitStatus,
			Window:   a.Config.RateLimitWindow,
		},
		Queue:    queue,
		Renderer: a.Renderer,
		Store:    a.Store,
		LinkTTL:  a.Config.ExportLinkTTL,
	}
	if _, ok := a.Store.(*localstore.Store); ok {
		// Local files are not publicly served; downloads go through the API.
		a.ExportService.ArtifactBaseURL = a.Config.PublicAPIURL
	}
	failAfter := a.Config.StalePendingFail
	if budget := a.RetryPolicy().Budget() + a.Config.StalePendingAfter; failAfter > 0 && failAfter < budget {
		failAfter = budget
	}
	a.Sweeper = &exports.StaleSweeper{
		Repo:      exportsRepo,
		After:     a.Config.StalePendingAfter,
		FailAfter: failAfter,
	}
	a.Handler = exports.NewHandler(a.ExportService)

	checks := map[string]health.Check{}
	if a.DB != nil {
		checks["postgres"] = a.DB.PingContext
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	a.Health = health.NewService(checks)

	if a.Handler == nil || a.Worker == nil {
		return errors.New("failed to initialize export services")
	}
	return nil
}

// RetryPolicy is the export job retry policy from config.
func (a *App) RetryPolicy() jobs.RetryPolicy {
	return jobs.RetryPolicy{Attempts: a.Config.ExportAttempts, InitialDelay: a.Config.ExportBackoffInitial}
}
