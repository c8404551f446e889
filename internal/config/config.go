// Package config loads fleetwatch configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the fleetwatch binaries need at startup.
type Config struct {
	// Telegram
	TelegramToken string
	DefaultChatID int64
	DryRun        bool

	// Samsara API
	SamsaraToken    string
	SamsaraBaseURL  string
	CacheTTL        time.Duration
	RefreshInterval time.Duration

	// Webhook server
	WebhookListenAddr string
	WebhookSecret     string
	AlertRoutesPath   string

	// Storage
	DirectoryDBPath string
	DocsDir         string

	// Maintenance sheet
	MaintenanceSheetURL string

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string
}

// Load reads .env (when present) and the environment. Only the two API tokens
// are mandatory; everything else has a working default.
func Load() (*Config, error) {
	cfg := load()

	if cfg.SamsaraToken == "" {
		return nil, fmt.Errorf("SAMSARA_API_TOKEN environment variable is required")
	}
	if cfg.TelegramToken == "" && !cfg.DryRun {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is required (or set DRY_RUN=true)")
	}

	return cfg, nil
}

// LoadGateway is Load for tools that only talk to the telemetry API.
// Telegram credentials are not required.
func LoadGateway() (*Config, error) {
	cfg := load()

	if cfg.SamsaraToken == "" {
		return nil, fmt.Errorf("SAMSARA_API_TOKEN environment variable is required")
	}

	return cfg, nil
}

func load() *Config {
	// Missing .env is fine in production, env vars win either way.
	_ = godotenv.Load()

	return &Config{
		TelegramToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		DefaultChatID:       getEnvInt64("DEFAULT_CHAT_ID", 0),
		DryRun:              getEnvBool("DRY_RUN", false),
		SamsaraToken:        os.Getenv("SAMSARA_API_TOKEN"),
		SamsaraBaseURL:      getEnv("SAMSARA_BASE_URL", "https://api.samsara.com"),
		CacheTTL:            getEnvDuration("CACHE_TTL", 3*time.Minute),
		RefreshInterval:     getEnvDuration("REFRESH_INTERVAL", time.Hour),
		WebhookListenAddr:   getEnv("WEBHOOK_LISTEN_ADDR", ":8080"),
		WebhookSecret:       os.Getenv("WEBHOOK_SECRET"),
		AlertRoutesPath:     getEnv("ALERT_ROUTES_PATH", "alert-routes.json"),
		DirectoryDBPath:     getEnv("DIRECTORY_DB_PATH", "fleetwatch.db"),
		DocsDir:             getEnv("DOCS_DIR", "docs"),
		MaintenanceSheetURL: os.Getenv("MAINTENANCE_SHEET_URL"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		LogFile:             os.Getenv("LOG_FILE"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
