// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

// Package database is the PostgreSQL storage layer, built on pgx v5
// connection pooling.
//
// Every query runs under a per-query timeout derived from configuration,
// and every storage method is instrumented with duration and error
// metrics. Row absence is reported with ErrNotFound so callers branch
// with errors.Is instead of inspecting driver errors.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rmarins/linktally/internal/config"
	"github.com/rmarins/linktally/internal/logging"
	"github.com/rmarins/linktally/internal/metrics"
)

// Sentinel errors returned by storage methods.
var (
	ErrNotFound      = errors.New("record not found")
	ErrCodeTaken     = errors.New("short code already in use")
	ErrUsernameTaken = errors.New("username already in use")
)

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

// DB wraps a pgx connection pool with query timeouts and instrumentation.
type DB struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// New opens a connection pool against cfg.URL, verifies connectivity,
// and ensures the schema exists.
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	// Bounded acquire: under pool exhaustion callers fail fast instead of
	// queueing behind every other request.
	poolConfig.ConnConfig.ConnectTimeout = cfg.AcquireTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	db := &DB{pool: pool, queryTimeout: cfg.QueryTimeout}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := db.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	logging.Info().
		Int32("max_conns", cfg.MaxConns).
		Msg("database pool ready")

	return db, nil
}

// Close releases the connection pool. Blocks until checked-out
// connections are returned.
func (db *DB) Close() {
	db.pool.Close()
}

// Ping verifies database connectivity, for health checks.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()
	return db.pool.Ping(ctx)
}

// opCtx derives the per-query deadline context.
func (db *DB) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, db.queryTimeout)
}

// observe records one storage operation's metrics and logs failures.
func observe(ctx context.Context, op string, start time.Time, err error) {
	metrics.RecordDBQuery(op, time.Since(start), err)
	if err != nil && !errors.Is(err, ErrNotFound) {
		logging.Ctx(ctx).Error().Err(err).Str("operation", op).Msg("database query failed")
	}
}
