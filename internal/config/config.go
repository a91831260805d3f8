package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the shopping assistant service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	DatabaseURL string

	CatalogBaseURL           string
	CatalogAPIKey            string
	CatalogTimeout           time.Duration
	CatalogRequestsPerMinute int

	ChatBaseURL string
	ChatTimeout time.Duration

	LedgerRetention     time.Duration
	LedgerPruneInterval time.Duration

	RecsFanoutDelay   time.Duration
	RecsSourceTimeout time.Duration
	RecsDefaultLimit  int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "shopmate"),
		AllowAnyOrigin:   false,
		DatabaseURL:      trimmedEnv("DATABASE_URL"),
		CatalogBaseURL:   envOrDefault("CATALOG_BASE_URL", "https://api.bestbuy.com"),
		CatalogAPIKey:    trimmedEnv("CATALOG_API_KEY"),
		ChatBaseURL:      trimmedEnv("CHAT_BASE_URL"),

		ShutdownTimeout: 15 * time.Second,
		CatalogTimeout:  10 * time.Second,
		// The public catalog API throttles aggressively; stay well inside.
		CatalogRequestsPerMinute: 5,
		ChatTimeout:              60 * time.Second,
		LedgerRetention:          30 * 24 * time.Hour,
		LedgerPruneInterval:      time.Hour,
		RecsFanoutDelay:          200 * time.Millisecond,
		RecsSourceTimeout:        8 * time.Second,
		RecsDefaultLimit:         10,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.CatalogTimeout, err = durationFromEnv("CATALOG_TIMEOUT", cfg.CatalogTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CatalogRequestsPerMinute, err = intFromEnv("CATALOG_REQUESTS_PER_MINUTE", cfg.CatalogRequestsPerMinute)
	if err != nil {
		return Config{}, err
	}
	cfg.ChatTimeout, err = durationFromEnv("CHAT_TIMEOUT", cfg.ChatTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.LedgerRetention, err = durationFromEnv("LEDGER_RETENTION", cfg.LedgerRetention)
	if err != nil {
		return Config{}, err
	}
	cfg.LedgerPruneInterval, err = durationFromEnv("LEDGER_PRUNE_INTERVAL", cfg.LedgerPruneInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.RecsFanoutDelay, err = durationFromEnv("RECS_FANOUT_DELAY", cfg.RecsFanoutDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.RecsSourceTimeout, err = durationFromEnv("RECS_SOURCE_TIMEOUT", cfg.RecsSourceTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RecsDefaultLimit, err = intFromEnv("RECS_DEFAULT_LIMIT", cfg.RecsDefaultLimit)
	if err != nil {
		return Config{}, err
	}

	if cfg.CatalogRequestsPerMinute <= 0 {
		return Config{}, fmt.Errorf("CATALOG_REQUESTS_PER_MINUTE must be positive")
	}
	if cfg.LedgerRetention < time.Hour {
		return Config{}, fmt.Errorf("LEDGER_RETENTION must be at least 1h")
	}
	if cfg.LedgerPruneInterval < time.Minute {
		return Config{}, fmt.Errorf("LEDGER_PRUNE_INTERVAL must be at least 1m")
	}
	if cfg.RecsSourceTimeout < time.Second {
		return Config{}, fmt.Errorf("RECS_SOURCE_TIMEOUT must be at least 1s")
	}
	if cfg.RecsDefaultLimit <= 0 {
		return Config{}, fmt.Errorf("RECS_DEFAULT_LIMIT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
