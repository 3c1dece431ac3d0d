// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

// Package main is the entry point for the LinkTally server.
//
// LinkTally is a self-hosted URL shortener with click analytics. It
// serves short-link redirects, records per-click analytics (referrer,
// browser, platform), and exposes a JSON API for link management plus
// an authenticated admin API.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and optional YAML file (Koanf v2)
//  2. Logging: zerolog, JSON or console format
//  3. Database: PostgreSQL pool (pgx v5) with idempotent schema bootstrap
//  4. Services: link shortening/analytics and admin authentication
//  5. Background sweeper: periodic expiry cleanup
//  6. HTTP server: chi router with the public, redirect, and admin routes
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (DATABASE_URL, JWT_SECRET, PORT, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// Minimal production setup:
//
//	export DATABASE_URL=postgres://linktally:secret@db:5432/linktally
//	export JWT_SECRET=$(openssl rand -base64 32)
//	./linktally
//
// An initial admin account is provisioned with the linktally-admin tool.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, waits for in-flight requests up to the
// configured shutdown timeout, stops the sweeper, and closes the
// database pool.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rmarins/linktally/internal/api"
	"github.com/rmarins/linktally/internal/auth"
	"github.com/rmarins/linktally/internal/cache"
	"github.com/rmarins/linktally/internal/config"
	"github.com/rmarins/linktally/internal/database"
	"github.com/rmarins/linktally/internal/logging"
	"github.com/rmarins/linktally/internal/metrics"
	"github.com/rmarins/linktally/internal/shortener"
	"github.com/rmarins/linktally/internal/validation"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Int("port", cfg.Server.Port).
		Str("base_url", cfg.Server.BaseURL).
		Bool("sweeper", cfg.Sweeper.Enabled).
		Msg("Starting LinkTally")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()
	logging.Info().Msg("Database initialized successfully")

	readCache := cache.New(cfg.Cache.StatsTTL)

	linkSvc := shortener.New(
		db,
		validation.URLPolicy{
			MaxLength:           cfg.Policy.MaxURLLength,
			AllowPrivateTargets: cfg.Policy.AllowPrivateTargets,
		},
		readCache,
		cfg.Cache.StatsTTL,
		cfg.Cache.ListTTL,
	)

	tokens, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token manager")
	}
	authSvc := auth.NewService(db, auth.NewPasswordHasher(cfg.Security.BcryptCost), tokens)

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED; do not run this way on a public network")
	}

	handler := api.NewHandler(linkSvc, authSvc, cfg, db)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(cfg, handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	sweeperDone := make(chan struct{})
	if cfg.Sweeper.Enabled {
		go runSweeper(ctx, cfg, linkSvc, authSvc, readCache, sweeperDone)
	} else {
		close(sweeperDone)
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server failed")
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown incomplete")
	}
	<-sweeperDone

	logging.Info().Msg("Application stopped gracefully")
}

// runSweeper periodically removes expired sessions, expired links when
// configured, and stale cache entries, until ctx is canceled.
func runSweeper(ctx context.Context, cfg *config.Config, links *shortener.Service, authSvc *auth.Service, readCache *cache.Cache, done chan<- struct{}) {
	defer close(done)

	log := logging.WithComponent("sweeper")
	log.Info().Dur("interval", cfg.Sweeper.Interval).Bool("sweep_links", cfg.Sweeper.SweepLinks).Msg("Sweeper started")

	ticker := time.NewTicker(cfg.Sweeper.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Sweeper stopped")
			return
		case <-ticker.C:
			metrics.SweepsRun.Inc()

			if _, err := authSvc.CleanExpiredSessions(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Session sweep failed")
			}
			if cfg.Sweeper.SweepLinks {
				if _, err := links.CleanExpired(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error().Err(err).Msg("Link sweep failed")
				}
			}
			readCache.Prune()
		}
	}
}
