// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

// Package config loads and validates application configuration.
//
// Configuration is loaded via Koanf v2 with layered sources, highest
// priority last:
//
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables
//
// The resulting Config is immutable after Load() and safe for concurrent
// read access from multiple goroutines.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Policy   PolicyConfig   `koanf:"policy"`
	Cache    CacheConfig    `koanf:"cache"`
	Sweeper  SweeperConfig  `koanf:"sweeper"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - PORT: Listen port (default: 8080)
//   - SERVER_HOST: Bind address (default: 0.0.0.0)
//   - BASE_URL: External base URL used when the request host cannot be
//     trusted (optional; short URLs are composed from the request by default)
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	BaseURL         string        `koanf:"base_url"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection pool settings.
//
// Environment Variables:
//   - DATABASE_URL: PostgreSQL connection string (required)
//   - DATABASE_MAX_CONNS: Pool size ceiling (default: 15)
//   - DATABASE_ACQUIRE_TIMEOUT: Max wait for a pooled connection; pool
//     exhaustion fails fast instead of hanging (default: 5s)
//   - DATABASE_QUERY_TIMEOUT: Per-query deadline (default: 10s)
type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	MaxConns       int32         `koanf:"max_conns"`
	MinConns       int32         `koanf:"min_conns"`
	AcquireTimeout time.Duration `koanf:"acquire_timeout"`
	QueryTimeout   time.Duration `koanf:"query_timeout"`
}

// SecurityConfig holds authentication and rate limiting settings.
//
// Environment Variables:
//   - JWT_SECRET: 32+ character secret for token signing (required)
//   - SESSION_TIMEOUT: Token and session lifetime (default: 24h)
//   - BCRYPT_COST: bcrypt work factor (default: 12)
//   - RATE_LIMIT_REQS / RATE_LIMIT_WINDOW: General API rate limit
//   - LOGIN_RATE_LIMIT_REQS / LOGIN_RATE_LIMIT_WINDOW: Login brute-force cap
//   - CORS_ORIGINS: Comma-separated allowed origins (default: *)
type SecurityConfig struct {
	JWTSecret            string        `koanf:"jwt_secret"`
	SessionTimeout       time.Duration `koanf:"session_timeout"`
	BcryptCost           int           `koanf:"bcrypt_cost"`
	RateLimitReqs        int           `koanf:"rate_limit_reqs"`
	RateLimitWindow      time.Duration `koanf:"rate_limit_window"`
	LoginRateLimitReqs   int           `koanf:"login_rate_limit_reqs"`
	LoginRateLimitWindow time.Duration `koanf:"login_rate_limit_window"`
	RateLimitDisabled    bool          `koanf:"rate_limit_disabled"`
	CORSOrigins          []string      `koanf:"cors_origins"`
}

// PolicyConfig holds link target policy settings.
//
// AllowPrivateTargets controls whether shortened URLs may point at
// private, loopback, or link-local hosts. The default rejects them;
// enabling this re-opens an SSRF-shaped hole and should only be done on
// trusted internal deployments.
type PolicyConfig struct {
	AllowPrivateTargets bool `koanf:"allow_private_targets"`
	MaxURLLength        int  `koanf:"max_url_length"`
}

// CacheConfig holds in-process cache TTLs for admin read paths.
// The cache is per-process; a multi-instance deployment serves stats up
// to StatsTTL stale.
type CacheConfig struct {
	StatsTTL time.Duration `koanf:"stats_ttl"`
	ListTTL  time.Duration `koanf:"list_ttl"`
}

// SweeperConfig holds background expiry sweep settings.
// The sweeper periodically deletes expired sessions and, when enabled for
// links, expired links with their click events.
type SweeperConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Interval   time.Duration `koanf:"interval"`
	SweepLinks bool          `koanf:"sweep_links"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}
