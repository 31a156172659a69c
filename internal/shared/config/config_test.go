package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("OBJECT_STORE", "")
	cfg := Load()

	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local store, got %q", cfg.ObjectStoreType)
	}
	if cfg.ExportAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", cfg.ExportAttempts)
	}
	if cfg.ExportBackoffInitial != 10*time.Second {
		t.Fatalf("expected 10s backoff, got %s", cfg.ExportBackoffInitial)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("OBJECT_STORE", " S3 ")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("EXPORT_ATTEMPTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("S3_SIGNED_URLS", "false")
	cfg := Load()

	if cfg.Env != "production" {
		t.Fatalf("expected production, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "s3" {
		t.Fatalf("expected s3, got %q", cfg.ObjectStoreType)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowOrigin)
	}
	if cfg.ExportAttempts != 5 {
		t.Fatalf("expected 5 attempts, got %d", cfg.ExportAttempts)
	}
	if cfg.RateLimitWindow != 30*time.Second {
		t.Fatalf("expected 30s window, got %s", cfg.RateLimitWindow)
	}
	if cfg.S3SignedURLs {
		t.Fatalf("expected signed urls disabled")
	}
}
