package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"resume-export/internal/shared/config"
	"resume-export/internal/shared/telemetry"
)

// Profile names the kind of process that owns a pool.
type Profile string

const (
	ProfileLambda  Profile = "lambda"
	ProfileServer  Profile = "server"
	ProfileMigrate Profile = "migrate"
)

// Pool sizes and times out a *sql.DB.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
	PingTimeout time.Duration
}

var openDB = sql.Open

// shared is the per-sandbox connection reused across Lambda invocations.
var shared struct {
	mu sync.Mutex
	db *sql.DB
}

// DetectProfile picks ProfileLambda inside a Lambda sandbox and
// ProfileServer everywhere else.
func DetectProfile() Profile {
	if strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != "" {
		return ProfileLambda
	}
	return ProfileServer
}

// PoolFor returns the pool for profile with cfg's DB_* overrides applied.
// Server pools keep one connection per export worker plus headroom for the
// request path, since the API and worker share the same build.
func PoolFor(profile Profile, cfg config.Config) Pool {
	var p Pool
	switch profile {
	case ProfileLambda:
		// Many sandboxes share one Postgres; keep each one tiny.
		p = Pool{MaxOpen: 2, MaxIdle: 1, MaxLifetime: 15 * time.Minute, MaxIdleTime: 30 * time.Second, PingTimeout: 3 * time.Second}
	case ProfileMigrate:
		p = Pool{MaxOpen: 1, MaxIdle: 1, MaxLifetime: time.Hour, MaxIdleTime: 2 * time.Minute, PingTimeout: 10 * time.Second}
	default:
		p = Pool{MaxOpen: 10, MaxIdle: 5, MaxLifetime: time.Hour, MaxIdleTime: 2 * time.Minute, PingTimeout: 5 * time.Second}
		if need := cfg.WorkerConcurrency + 4; need > p.MaxOpen {
			p.MaxOpen = need
		}
	}

	if cfg.DBMaxOpenConns > 0 {
		p.MaxOpen = cfg.DBMaxOpenConns
	}
	if cfg.DBMaxIdleConns > 0 {
		p.MaxIdle = cfg.DBMaxIdleConns
	}
	if cfg.DBConnMaxLifetime > 0 {
		p.MaxLifetime = cfg.DBConnMaxLifetime
	}
	if cfg.DBConnMaxIdleTime > 0 {
		p.MaxIdleTime = cfg.DBConnMaxIdleTime
	}
	if cfg.DBPingTimeout > 0 {
		p.PingTimeout = cfg.DBPingTimeout
	}
	if p.MaxIdle > p.MaxOpen {
		p.MaxIdle = p.MaxOpen
	}
	return p
}

// Open connects to databaseURL with pool p and pings before returning.
func Open(ctx context.Context, databaseURL string, p Pool) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	sqlDB, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(p.MaxOpen)
	sqlDB.SetMaxIdleConns(p.MaxIdle)
	sqlDB.SetConnMaxLifetime(p.MaxLifetime)
	sqlDB.SetConnMaxIdleTime(p.MaxIdleTime)

	timeout := p.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	telemetry.Info("db.opened", map[string]any{
		"max_open":      p.MaxOpen,
		"max_idle":      p.MaxIdle,
		"max_lifetime":  p.MaxLifetime.String(),
		"max_idle_time": p.MaxIdleTime.String(),
	})
	return sqlDB, nil
}

// Shared returns the sandbox-wide *sql.DB, opening it on first use. A failed
// open is not cached, so the next invocation tries again.
func Shared(ctx context.Context, databaseURL string, p Pool) (*sql.DB, error) {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	if shared.db != nil {
		return shared.db, nil
	}
	sqlDB, err := Open(ctx, databaseURL, p)
	if err != nil {
		return nil, err
	}
	shared.db = sqlDB
	return sqlDB, nil
}
