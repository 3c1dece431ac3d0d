// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rmarins/linktally/internal/models"
)

// InsertSession stores a new admin session.
func (db *DB) InsertSession(ctx context.Context, session *models.Session) error {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	err := db.pool.QueryRow(ctx,
		`INSERT INTO admin_sessions (user_id, token_hash, ip_address, user_agent, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		session.UserID, session.TokenHash, session.IPAddress, session.UserAgent, session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
	}
	observe(ctx, "sessions.insert", start, err)
	return err
}

// GetLiveSession fetches an unexpired session by token hash, joined with
// its user. Both the session row and an active user must exist;
// otherwise ErrNotFound.
func (db *DB) GetLiveSession(ctx context.Context, tokenHash string, now time.Time) (*models.Session, *models.AdminUser, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	var s models.Session
	var u models.AdminUser
	err := db.pool.QueryRow(ctx,
		`SELECT s.id, s.user_id, s.token_hash, s.ip_address, s.user_agent, s.created_at, s.expires_at,
		        u.id, u.username, u.email, u.full_name, u.password_hash, u.is_active, u.created_at, u.last_login_at
		 FROM admin_sessions s
		 JOIN admin_users u ON u.id = s.user_id
		 WHERE s.token_hash = $1 AND s.expires_at > $2 AND u.is_active`,
		tokenHash, now,
	).Scan(&s.ID, &s.UserID, &s.TokenHash, &s.IPAddress, &s.UserAgent, &s.CreatedAt, &s.ExpiresAt,
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		err = ErrNotFound
	} else if err != nil {
		err = fmt.Errorf("fetching session: %w", err)
	}
	observe(ctx, "sessions.get_live", start, err)
	if err != nil {
		return nil, nil, err
	}
	return &s, &u, nil
}

// DeleteSessionByHash removes one session by token hash. Absent hashes
// are a no-op so logout is idempotent.
func (db *DB) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	_, err := db.pool.Exec(ctx,
		"DELETE FROM admin_sessions WHERE token_hash = $1", tokenHash)
	if err != nil {
		err = fmt.Errorf("deleting session: %w", err)
	}
	observe(ctx, "sessions.delete_by_hash", start, err)
	return err
}

// DeleteSessionsForUser removes every session belonging to a user.
// Called after password changes so stolen tokens die with the old
// password.
func (db *DB) DeleteSessionsForUser(ctx context.Context, userID int64) (int64, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	tag, err := db.pool.Exec(ctx,
		"DELETE FROM admin_sessions WHERE user_id = $1", userID)
	if err != nil {
		err = fmt.Errorf("deleting user sessions: %w", err)
		observe(ctx, "sessions.delete_for_user", start, err)
		return 0, err
	}
	observe(ctx, "sessions.delete_for_user", start, nil)
	return tag.RowsAffected(), nil
}

// CleanExpiredSessions removes sessions whose expiry has passed.
func (db *DB) CleanExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	tag, err := db.pool.Exec(ctx,
		"DELETE FROM admin_sessions WHERE expires_at <= $1", now)
	if err != nil {
		err = fmt.Errorf("cleaning sessions: %w", err)
		observe(ctx, "sessions.clean_expired", start, err)
		return 0, err
	}
	observe(ctx, "sessions.clean_expired", start, nil)
	return tag.RowsAffected(), nil
}

// CountLiveSessions returns the number of unexpired sessions.
func (db *DB) CountLiveSessions(ctx context.Context, now time.Time) (int64, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	var n int64
	err := db.pool.QueryRow(ctx,
		"SELECT count(*) FROM admin_sessions WHERE expires_at > $1", now).Scan(&n)
	if err != nil {
		err = fmt.Errorf("counting sessions: %w", err)
	}
	observe(ctx, "sessions.count_live", start, err)
	return n, err
}
