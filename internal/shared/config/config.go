package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"resume-export/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string
	DatabaseURL     string
	RedisURL        string
	JWTSecret       string

	ObjectStoreType   string
	LocalStoreDir     string
	PublicAPIURL      string
	AWSRegion         string
	S3Bucket          string
	S3Prefix          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicBaseURL   string
	S3SignedURLs      bool
	SSEKMSKeyID       string

	RendererURL          string
	RendererClientID     string
	RendererClientSecret string
	RendererTokenURL     string
	RendererTimeout      time.Duration

	ExportAttempts       int
	ExportBackoffInitial time.Duration
	ExportLinkTTL        time.Duration
	WorkerConcurrency    int
	StalePendingAfter    time.Duration
	StalePendingFail     time.Duration
	StaleSweepSpec       string
	NotifySQSQueueURL    string

	RateLimitEnqueue  int64
	RateLimitDownload int64
	RateLimitStatus   int64
	RateLimitGlobal   int64
	RateLimitWindow   time.Duration

	// Pool overrides; zero keeps the per-process default.
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	DBPingTimeout     time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	_ = godotenv.Load(existing(".env.local", ".env", "cmd/.env")...)

	v := NewViper()
	env := normalizeEnv(v.GetString("env"))
	dbURL := strings.TrimSpace(v.GetString("database_url"))
	if env == "production" && dbURL == "" {
		telemetry.Error("config.database_url_missing", map[string]any{"env": env})
	}

	return Config{
		Port:            v.GetString("port"),
		Env:             env,
		LogLevel:        v.GetString("log_level"),
		CORSAllowOrigin: splitAndTrim(v.GetString("cors_allow_origins")),
		DatabaseURL:     dbURL,
		RedisURL:        strings.TrimSpace(v.GetString("redis_url")),
		JWTSecret:       v.GetString("jwt_secret"),

		ObjectStoreType:   normalizeStoreType(v.GetString("object_store")),
		LocalStoreDir:     v.GetString("local_store_dir"),
		PublicAPIURL:      v.GetString("public_api_url"),
		AWSRegion:         v.GetString("aws_region"),
		S3Bucket:          v.GetString("s3_bucket"),
		S3Prefix:          v.GetString("s3_prefix"),
		S3Endpoint:        v.GetString("s3_endpoint"),
		S3AccessKeyID:     v.GetString("s3_access_key_id"),
		S3SecretAccessKey: v.GetString("s3_secret_access_key"),
		S3PublicBaseURL:   v.GetString("s3_public_base_url"),
		S3SignedURLs:      v.GetBool("s3_signed_urls"),
		SSEKMSKeyID:       v.GetString("sse_kms_key_id"),

		RendererURL:          v.GetString("renderer_url"),
		RendererClientID:     v.GetString("renderer_client_id"),
		RendererClientSecret: v.GetString("renderer_client_secret"),
		RendererTokenURL:     v.GetString("renderer_token_url"),
		RendererTimeout:      v.GetDuration("renderer_timeout"),

		ExportAttempts:       v.GetInt("export_attempts"),
		ExportBackoffInitial: v.GetDuration("export_backoff_initial"),
		ExportLinkTTL:        v.GetDuration("export_link_ttl"),
		WorkerConcurrency:    v.GetInt("worker_concurrency"),
		StalePendingAfter:    v.GetDuration("stale_pending_after"),
		StalePendingFail:     v.GetDuration("stale_pending_fail_after"),
		StaleSweepSpec:       v.GetString("stale_sweep_spec"),
		NotifySQSQueueURL:    v.GetString("notify_sqs_queue_url"),

		RateLimitEnqueue:  v.GetInt64("rate_limit_enqueue"),
		RateLimitDownload: v.GetInt64("rate_limit_download"),
		RateLimitStatus:   v.GetInt64("rate_limit_status"),
		RateLimitGlobal:   v.GetInt64("rate_limit_global"),
		RateLimitWindow:   v.GetDuration("rate_limit_window"),

		DBMaxOpenConns:    v.GetInt("db_max_open_conns"),
		DBMaxIdleConns:    v.GetInt("db_max_idle_conns"),
		DBConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),
		DBConnMaxIdleTime: v.GetDuration("db_conn_max_idle_time"),
		DBPingTimeout:     v.GetDuration("db_ping_timeout"),
	}
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("cors_allow_origins", "http://localhost:5173")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("jwt_secret", "")

	v.SetDefault("object_store", "local")
	v.SetDefault("local_store_dir", "./data")
	v.SetDefault("public_api_url", "http://localhost:8080/api/v1")
	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_prefix", "exports/")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_access_key_id", "")
	v.SetDefault("s3_secret_access_key", "")
	v.SetDefault("s3_public_base_url", "")
	v.SetDefault("s3_signed_urls", true)
	v.SetDefault("sse_kms_key_id", "")

	v.SetDefault("renderer_url", "")
	v.SetDefault("renderer_client_id", "")
	v.SetDefault("renderer_client_secret", "")
	v.SetDefault("renderer_token_url", "")
	v.SetDefault("renderer_timeout", "60s")

	v.SetDefault("export_attempts", 3)
	v.SetDefault("export_backoff_initial", "10s")
	v.SetDefault("export_link_ttl", "15m")
	v.SetDefault("worker_concurrency", 4)
	v.SetDefault("stale_pending_after", "30m")
	v.SetDefault("stale_pending_fail_after", "2h")
	v.SetDefault("stale_sweep_spec", "@every 5m")
	v.SetDefault("notify_sqs_queue_url", "")

	v.SetDefault("db_max_open_conns", 0)
	v.SetDefault("db_max_idle_conns", 0)
	v.SetDefault("db_conn_max_lifetime", "0s")
	v.SetDefault("db_conn_max_idle_time", "0s")
	v.SetDefault("db_ping_timeout", "0s")

	v.SetDefault("rate_limit_enqueue", 10)
	v.SetDefault("rate_limit_download", 5)
	v.SetDefault("rate_limit_status", 120)
	v.SetDefault("rate_limit_global", 600)
	v.SetDefault("rate_limit_window", "1m")
	return v
}

func existing(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

// IsDevLike reports whether env permits in-memory fallbacks.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
