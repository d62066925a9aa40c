package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"SERVICE_NAME", "HTTP_PORT", "POSTGRES_DSN", "VIEWER_ID", "SEED_FILE",
		"NOTIFICATION_FETCH_LIMIT", "RECEIPT_RETRY_INTERVAL", "LOG_LEVEL", "LOG_FORMAT",
		"ENABLE_VIEW_REFRESHER", "ENABLE_RECEIPT_RETRIER",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "engagement" || cfg.HTTPPort != "8080" || cfg.ViewerID != "viewer-local" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.NotificationFetchLimit != 50 || cfg.ReceiptRetryInterval != 30*time.Second {
		t.Fatalf("unexpected numeric defaults: %+v", cfg)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected log defaults: %+v", cfg)
	}
	if !cfg.EnableViewRefresher || !cfg.EnableReceiptRetrier {
		t.Fatalf("expected background workers enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("VIEWER_ID", "  viewer_9 ")
	t.Setenv("SEED_FILE", "seed.yaml")
	t.Setenv("NOTIFICATION_FETCH_LIMIT", "20")
	t.Setenv("RECEIPT_RETRY_INTERVAL", "5s")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ENABLE_VIEW_REFRESHER", "off")
	t.Setenv("ENABLE_RECEIPT_RETRIER", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ViewerID != "viewer_9" || cfg.SeedFile != "seed.yaml" {
		t.Fatalf("unexpected identity config: %+v", cfg)
	}
	if cfg.NotificationFetchLimit != 20 || cfg.ReceiptRetryInterval != 5*time.Second {
		t.Fatalf("unexpected numeric config: %+v", cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected lowered log level, got %q", cfg.LogLevel)
	}
	if cfg.EnableViewRefresher {
		t.Fatalf("expected view refresher disabled")
	}
	if !cfg.EnableReceiptRetrier {
		t.Fatalf("expected unparseable flag to keep its default")
	}
}

func TestLoadRejectsInvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTIFICATION_FETCH_LIMIT", "-1")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "NOTIFICATION_FETCH_LIMIT") {
		t.Fatalf("expected fetch limit error, got %v", err)
	}

	clearEnv(t)
	t.Setenv("RECEIPT_RETRY_INTERVAL", "soon")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "RECEIPT_RETRY_INTERVAL") {
		t.Fatalf("expected retry interval error, got %v", err)
	}
}
