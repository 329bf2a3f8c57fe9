// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backend kinds. The backend is chosen once at startup.
const (
	BackendSQL  = "sql"
	BackendREST = "rest"
)

// Database drivers for the SQL backend.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// knownWeakKeys contains example API keys that must be rejected.
var knownWeakKeys = []string{
	"change-me-to-a-long-random-api-key",
	"REPLACE_WITH_YOUR_OWN_API_KEY_VALUE",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ServerHost string `env:"SITECMS_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"SITECMS_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"SITECMS_ENV" envDefault:"development"`
	LogLevel   string `env:"SITECMS_LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"SITECMS_LOG_FORMAT" envDefault:"text"`
	Timezone   string `env:"SITECMS_TIMEZONE" envDefault:"UTC"` // Zone of bare dates in stats ranges

	// Backend selection
	Backend  string `env:"SITECMS_BACKEND" envDefault:"sql"`
	DBDriver string `env:"SITECMS_DB_DRIVER" envDefault:"sqlite"`
	DBURL    string `env:"SITECMS_DB_URL" envDefault:"./data/sitecms.db"` // SQLite path or Postgres DSN

	// Remote API used by the REST backend
	RestURL     string        `env:"SITECMS_REST_URL"`
	RestAPIKey  string        `env:"SITECMS_REST_API_KEY"`
	RestTimeout time.Duration `env:"SITECMS_REST_TIMEOUT" envDefault:"10s"`

	// HTTP API
	APIKey         string        `env:"SITECMS_API_KEY"` // Bearer key for protected routes
	RateLimit      float64       `env:"SITECMS_RATE_LIMIT" envDefault:"100"`
	RateBurst      int           `env:"SITECMS_RATE_BURST" envDefault:"200"`
	RequestTimeout time.Duration `env:"SITECMS_REQUEST_TIMEOUT" envDefault:"30s"`
	StaticDir      string        `env:"SITECMS_STATIC_DIR"` // Optional built site served at /

	// Page view tracking
	TrackRate    float64  `env:"SITECMS_TRACK_RATE" envDefault:"1"`
	TrackBurst   int      `env:"SITECMS_TRACK_BURST" envDefault:"10"`
	TrackExclude []string `env:"SITECMS_TRACK_EXCLUDE" envSeparator:","`

	// Cache configuration. Redis is used when SITECMS_REDIS_URL is set.
	RedisURL     string `env:"SITECMS_REDIS_URL"`
	CachePrefix  string `env:"SITECMS_CACHE_PREFIX" envDefault:"sitecms:"`
	CacheTTL     int    `env:"SITECMS_CACHE_TTL" envDefault:"60"` // seconds
	CacheMaxSize int    `env:"SITECMS_CACHE_MAX_SIZE" envDefault:"10000"`

	// Stats cache warming; empty disables it.
	WarmSchedule string `env:"SITECMS_STATS_WARM_SCHEDULE" envDefault:"*/5 * * * *"`

	// Seeding configuration
	DoSeed bool `env:"SITECMS_DO_SEED" envDefault:"false"` // Seed empty content collections
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// CacheDuration returns the stats cache TTL.
func (c Config) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// Location returns the configured time zone. Load has already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MinAPIKeyLength is the minimum length of the API key when one is set.
const MinAPIKeyLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if !slices.Contains([]string{BackendSQL, BackendREST}, cfg.Backend) {
		return nil, fmt.Errorf("SITECMS_BACKEND must be %q or %q, got %q", BackendSQL, BackendREST, cfg.Backend)
	}

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if cfg.Backend == BackendSQL && !slices.Contains([]string{DriverSQLite, DriverPostgres}, cfg.DBDriver) {
		return nil, fmt.Errorf("SITECMS_DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, cfg.DBDriver)
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("SITECMS_LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("SITECMS_TIMEZONE: %w", err)
	}

	if cfg.APIKey == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("SITECMS_API_KEY is required outside development; "+
				"generate one with: openssl rand -base64 32")
		}
		slog.Warn("SITECMS_API_KEY is not set; collection and admin routes are unauthenticated")
		return cfg, nil
	}

	// Validate API key length
	if len(cfg.APIKey) < MinAPIKeyLength {
		return nil, fmt.Errorf("SITECMS_API_KEY must be at least %d bytes long, got %d bytes; "+
			"generate a secure key with: openssl rand -base64 32",
			MinAPIKeyLength, len(cfg.APIKey))
	}

	// Reject known weak/default keys
	if slices.Contains(knownWeakKeys, cfg.APIKey) {
		return nil, fmt.Errorf("SITECMS_API_KEY is a known default value and must not be used; " +
			"generate a secure key with: openssl rand -base64 32")
	}

	// Warn about low-entropy keys
	if !hasMinimumEntropy(cfg.APIKey) {
		slog.Warn("SITECMS_API_KEY has low character diversity; " +
			"consider generating a random key with: openssl rand -base64 32")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
