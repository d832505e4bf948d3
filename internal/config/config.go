// Package config loads portal configuration from the environment. A .env
// file is honored in development; real deployments set the environment
// directly.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"game-portal/internal/common/errors"
	"game-portal/internal/storage/postgres"
)

// Config is the complete portal configuration
type Config struct {
	Port     string
	TLSCert  string
	TLSKey   string
	LogLevel string
	LogFile  string

	// DatabaseType selects the storage adapter: sqlite (default) or postgres
	DatabaseType string
	DatabasePath string
	Postgres     postgres.Config

	RedisURL      string
	RedisPassword string

	JWTSecret  string
	SessionTTL time.Duration

	AdminPanelURL   string
	AdminServiceKey string

	DirectoryURL    string
	DirectoryAPIKey string

	SettingsKey string

	RateLimitEnabled bool
	RateLimit        int
	RateLimitWindow  time.Duration

	GateDelay       time.Duration
	StatusCacheTTL  time.Duration
	StatusRefresh   time.Duration
	GrantCleanupAge time.Duration
}

// Load reads configuration from the environment, after loading .env if one
// exists
func Load() (*Config, error) {
	// Missing .env is the normal case in production
	_ = godotenv.Load()

	cfg := &Config{
		Port:     env("PORT", "8080"),
		TLSCert:  os.Getenv("TLS_CERT_FILE"),
		TLSKey:   os.Getenv("TLS_KEY_FILE"),
		LogLevel: env("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),

		DatabaseType: env("DATABASE_TYPE", "sqlite"),
		DatabasePath: env("DATABASE_PATH", "portal.db"),
		Postgres: postgres.Config{
			Host:     env("POSTGRES_HOST", "localhost"),
			Port:     envInt("POSTGRES_PORT", 5432),
			User:     env("POSTGRES_USER", "portal"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Database: env("POSTGRES_DB", "portal"),
			SSLMode:  env("POSTGRES_SSLMODE", "disable"),
		},

		RedisURL:      os.Getenv("REDIS_URL"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		SessionTTL: envDuration("SESSION_TTL", 24*time.Hour),

		AdminPanelURL:   os.Getenv("ADMIN_PANEL_URL"),
		AdminServiceKey: os.Getenv("ADMIN_SERVICE_KEY"),

		DirectoryURL:    os.Getenv("DIRECTORY_URL"),
		DirectoryAPIKey: os.Getenv("DIRECTORY_API_KEY"),

		SettingsKey: os.Getenv("SETTINGS_ENCRYPTION_KEY"),

		RateLimitEnabled: envBool("RATE_LIMIT_ENABLED", true),
		RateLimit:        envInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:  envDuration("RATE_LIMIT_WINDOW", time.Minute),

		GateDelay:       envDuration("GATE_DELAY", time.Second),
		StatusCacheTTL:  envDuration("STATUS_CACHE_TTL", 30*time.Second),
		StatusRefresh:   envDuration("STATUS_REFRESH_INTERVAL", 30*time.Second),
		GrantCleanupAge: envDuration("GRANT_CLEANUP_AGE", time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields the portal cannot run without
func (c *Config) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.ConfigError("JWT_SECRET must be set to at least 32 characters")
	}
	if c.DirectoryURL == "" {
		return errors.ConfigError("DIRECTORY_URL is required")
	}
	if c.DatabaseType != "sqlite" && c.DatabaseType != "postgres" {
		return errors.ConfigError("DATABASE_TYPE must be sqlite or postgres")
	}
	// The admin panel is optional: with no service key the portal runs in
	// degraded mode and account operations answer with a configuration error.
	if c.AdminPanelURL != "" && c.AdminServiceKey == "" {
		return errors.ConfigError("ADMIN_SERVICE_KEY is required when ADMIN_PANEL_URL is set")
	}
	return nil
}

func env(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
