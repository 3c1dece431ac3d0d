// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are checked in order when CONFIG_PATH is not set.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/linktally/config.yaml",
}

// envAliases maps well-known flat environment variables to config keys.
// Any other LINKTALLY_* variable maps by the generic transform, e.g.
// LINKTALLY_SERVER_PORT -> server.port.
var envAliases = map[string]string{
	"PORT":                     "server.port",
	"HOST":                     "server.host",
	"BASE_URL":                 "server.base_url",
	"DATABASE_URL":             "database.url",
	"DATABASE_MAX_CONNS":       "database.max_conns",
	"DATABASE_ACQUIRE_TIMEOUT": "database.acquire_timeout",
	"DATABASE_QUERY_TIMEOUT":   "database.query_timeout",
	"JWT_SECRET":               "security.jwt_secret",
	"SESSION_TIMEOUT":          "security.session_timeout",
	"BCRYPT_COST":              "security.bcrypt_cost",
	"RATE_LIMIT_REQS":          "security.rate_limit_reqs",
	"RATE_LIMIT_WINDOW":        "security.rate_limit_window",
	"LOGIN_RATE_LIMIT_REQS":    "security.login_rate_limit_reqs",
	"LOGIN_RATE_LIMIT_WINDOW":  "security.login_rate_limit_window",
	"CORS_ORIGINS":             "security.cors_origins",
	"ALLOW_PRIVATE_TARGETS":    "policy.allow_private_targets",
	"MAX_URL_LENGTH":           "policy.max_url_length",
	"SWEEP_INTERVAL":           "sweeper.interval",
	"LOG_LEVEL":                "logging.level",
	"LOG_FORMAT":               "logging.format",
}

// sliceKeys are config keys whose env values are comma-separated lists.
var sliceKeys = map[string]bool{
	"security.cors_origins": true,
}

// defaultConfig returns the built-in defaults, the lowest priority layer.
func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns:       15,
			MinConns:       2,
			AcquireTimeout: 5 * time.Second,
			QueryTimeout:   10 * time.Second,
		},
		Security: SecurityConfig{
			SessionTimeout:       24 * time.Hour,
			BcryptCost:           12,
			RateLimitReqs:        100,
			RateLimitWindow:      time.Minute,
			LoginRateLimitReqs:   5,
			LoginRateLimitWindow: 15 * time.Minute,
			CORSOrigins:          []string{"*"},
		},
		Policy: PolicyConfig{
			AllowPrivateTargets: false,
			MaxURLLength:        2048,
		},
		Cache: CacheConfig{
			StatsTTL: 5 * time.Minute,
			ListTTL:  2 * time.Minute,
		},
		Sweeper: SweeperConfig{
			Enabled:    true,
			Interval:   time.Hour,
			SweepLinks: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	processSliceFields(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// findConfigFile returns the path of the config file to load, or empty
// when none exists. CONFIG_PATH wins over the default search paths.
func findConfigFile() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps environment variable names to config keys.
// Returns empty string to skip unrelated variables.
func envTransform(name string) string {
	if key, ok := envAliases[name]; ok {
		return key
	}
	if rest, ok := strings.CutPrefix(name, "LINKTALLY_"); ok {
		return strings.ReplaceAll(strings.ToLower(rest), "__", ".")
	}
	return ""
}

// processSliceFields splits comma-separated env values for list-typed keys.
// Environment variables are always scalar strings, so CORS_ORIGINS=a,b
// arrives as one string and must be re-split before unmarshaling.
func processSliceFields(k *koanf.Koanf) {
	for key := range sliceKeys {
		raw := k.Get(key)
		s, ok := raw.(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		_ = k.Set(key, out)
	}
}
