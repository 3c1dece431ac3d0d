// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for invalid or missing values.
// Called by Load() after all layers are merged; call it directly when
// constructing a Config by hand.
func (c *Config) Validate() error {
	if err := c.Server.validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Security.validate(); err != nil {
		return fmt.Errorf("security: %w", err)
	}
	if err := c.Policy.validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if err := c.Cache.validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Sweeper.validate(); err != nil {
		return fmt.Errorf("sweeper: %w", err)
	}
	return nil
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return errors.New("read and write timeouts must be positive")
	}
	return nil
}

func (c *DatabaseConfig) validate() error {
	if c.URL == "" {
		return errors.New("url is required (set DATABASE_URL)")
	}
	if c.MaxConns < 1 {
		return fmt.Errorf("max_conns must be at least 1, got %d", c.MaxConns)
	}
	if c.MinConns < 0 || c.MinConns > c.MaxConns {
		return fmt.Errorf("min_conns must be between 0 and max_conns, got %d", c.MinConns)
	}
	if c.AcquireTimeout <= 0 {
		return errors.New("acquire_timeout must be positive")
	}
	if c.QueryTimeout <= 0 {
		return errors.New("query_timeout must be positive")
	}
	return nil
}

func (c *SecurityConfig) validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 characters (set JWT_SECRET)")
	}
	if c.SessionTimeout <= 0 {
		return errors.New("session_timeout must be positive")
	}
	// bcrypt rejects costs outside this range at hash time; catch it at boot.
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("bcrypt_cost must be between 4 and 31, got %d", c.BcryptCost)
	}
	if !c.RateLimitDisabled {
		if c.RateLimitReqs < 1 || c.LoginRateLimitReqs < 1 {
			return errors.New("rate limit request counts must be at least 1")
		}
		if c.RateLimitWindow <= 0 || c.LoginRateLimitWindow <= 0 {
			return errors.New("rate limit windows must be positive")
		}
	}
	if len(c.CORSOrigins) == 0 {
		return errors.New("cors_origins must not be empty")
	}
	return nil
}

func (c *PolicyConfig) validate() error {
	if c.MaxURLLength < 1 {
		return fmt.Errorf("max_url_length must be at least 1, got %d", c.MaxURLLength)
	}
	return nil
}

func (c *CacheConfig) validate() error {
	if c.StatsTTL <= 0 || c.ListTTL <= 0 {
		return errors.New("cache TTLs must be positive")
	}
	return nil
}

func (c *SweeperConfig) validate() error {
	if c.Enabled && c.Interval <= 0 {
		return errors.New("interval must be positive when the sweeper is enabled")
	}
	return nil
}
