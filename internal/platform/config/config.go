package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string
	ViewerID    string
	SeedFile    string

	NotificationFetchLimit int
	ReceiptRetryInterval   time.Duration

	LogLevel  string
	LogFormat string

	EnableViewRefresher  bool
	EnableReceiptRetrier bool
}

// Load reads the environment. A .env file in the working directory is
// applied first when present; real environment variables win over it.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "engagement"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	viewerID := strings.TrimSpace(os.Getenv("VIEWER_ID"))
	if viewerID == "" {
		viewerID = "viewer-local"
	}

	fetchLimit, err := envInt("NOTIFICATION_FETCH_LIMIT", 50)
	if err != nil {
		return Config{}, err
	}
	retryInterval, err := envDuration("RECEIPT_RETRY_INTERVAL", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	logLevel := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if logFormat == "" {
		logFormat = "json"
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		ViewerID:    viewerID,
		SeedFile:    strings.TrimSpace(os.Getenv("SEED_FILE")),

		NotificationFetchLimit: fetchLimit,
		ReceiptRetryInterval:   retryInterval,

		LogLevel:  logLevel,
		LogFormat: logFormat,

		EnableViewRefresher:  envBool("ENABLE_VIEW_REFRESHER", true),
		EnableReceiptRetrier: envBool("ENABLE_RECEIPT_RETRIER", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return value, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", name, raw)
	}
	return value, nil
}
