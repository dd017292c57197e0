// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath      string `env:"STS_DB_PATH" envDefault:"./data/themeswitcher.db"`
	ServerHost  string `env:"STS_SERVER_HOST" envDefault:"localhost"`
	ServerPort  int    `env:"STS_SERVER_PORT" envDefault:"8080"`
	Env         string `env:"STS_ENV" envDefault:"development"`
	LogLevel    string `env:"STS_LOG_LEVEL" envDefault:"info"`
	ThemesDir   string `env:"STS_THEMES_DIR" envDefault:"./themes"`
	ActiveTheme string `env:"STS_ACTIVE_THEME" envDefault:"default"`

	// Cache configuration
	RedisURL        string `env:"STS_REDIS_URL"`                          // Optional Redis URL for a shared cache
	CachePrefix     string `env:"STS_CACHE_PREFIX" envDefault:"sts:"`     // Key prefix
	CacheTTL        int    `env:"STS_CACHE_TTL" envDefault:"3600"`        // Entry TTL in seconds
	CacheMaxSize    int    `env:"STS_CACHE_MAX_SIZE" envDefault:"10000"`  // Max memory cache entries
	LookupTimeoutMS int    `env:"STS_LOOKUP_TIMEOUT_MS" envDefault:"100"` // Bound on a single cache or meta lookup

	// Background jobs
	WatchThemes    bool   `env:"STS_WATCH_THEMES" envDefault:"true"`
	AuditSchedule  string `env:"STS_AUDIT_SCHEDULE" envDefault:"@every 10m"`
	EventRetention int    `env:"STS_EVENT_RETENTION_DAYS" envDefault:"30"` // 0 keeps events forever

	// API
	APIRateLimit   float64  `env:"STS_API_RATE_LIMIT" envDefault:"50"`
	APIRateBurst   int      `env:"STS_API_RATE_BURST" envDefault:"100"`
	IPRateLimit    float64  `env:"STS_IP_RATE_LIMIT" envDefault:"100"` // Per client IP, before authentication
	IPRateBurst    int      `env:"STS_IP_RATE_BURST" envDefault:"200"`
	TrustedOrigins []string `env:"STS_TRUSTED_ORIGINS" envSeparator:","`
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

// CacheTTLDuration returns the cache TTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// EventRetentionDuration returns how long events are kept, zero for forever.
func (c Config) EventRetentionDuration() time.Duration {
	return time.Duration(c.EventRetention) * 24 * time.Hour
}

// LookupTimeout returns the per-lookup timeout as a duration.
func (c Config) LookupTimeout() time.Duration {
	return time.Duration(c.LookupTimeoutMS) * time.Millisecond
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that the env tags cannot express.
func (c Config) Validate() error {
	var errs []error

	if c.ServerPort < 1 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("STS_SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("STS_CACHE_TTL must not be negative, got %d", c.CacheTTL))
	}
	if c.CacheMaxSize < 0 {
		errs = append(errs, fmt.Errorf("STS_CACHE_MAX_SIZE must not be negative, got %d", c.CacheMaxSize))
	}
	if c.LookupTimeoutMS <= 0 {
		errs = append(errs, fmt.Errorf("STS_LOOKUP_TIMEOUT_MS must be positive, got %d", c.LookupTimeoutMS))
	}
	if c.APIRateLimit <= 0 || c.APIRateBurst <= 0 {
		errs = append(errs, errors.New("STS_API_RATE_LIMIT and STS_API_RATE_BURST must be positive"))
	}
	if c.IPRateLimit < 0 || c.IPRateBurst < 0 {
		errs = append(errs, errors.New("STS_IP_RATE_LIMIT and STS_IP_RATE_BURST must not be negative"))
	}
	if strings.TrimSpace(c.ThemesDir) == "" {
		errs = append(errs, errors.New("STS_THEMES_DIR must not be empty"))
	}
	if _, err := cron.ParseStandard(c.AuditSchedule); err != nil {
		errs = append(errs, fmt.Errorf("STS_AUDIT_SCHEDULE %q: %w", c.AuditSchedule, err))
	}
	if c.EventRetention < 0 {
		errs = append(errs, fmt.Errorf("STS_EVENT_RETENTION_DAYS must not be negative, got %d", c.EventRetention))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("STS_LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}

	return errors.Join(errs...)
}
