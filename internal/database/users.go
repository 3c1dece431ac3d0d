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
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rmarins/linktally/internal/models"
)

const userColumns = "id, username, email, full_name, password_hash, is_active, created_at, last_login_at"

func scanUser(row pgx.Row) (*models.AdminUser, error) {
	var u models.AdminUser
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// InsertUser stores a new admin account. A username or email collision
// returns ErrUsernameTaken.
func (db *DB) InsertUser(ctx context.Context, user *models.AdminUser) error {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	err := db.pool.QueryRow(ctx,
		`INSERT INTO admin_users (username, email, full_name, password_hash, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		user.Username, user.Email, user.FullName, user.PasswordHash, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		err = ErrUsernameTaken
	} else if err != nil {
		err = fmt.Errorf("inserting user: %w", err)
	}
	observe(ctx, "users.insert", start, err)
	return err
}

// GetUserByLogin fetches an admin account by username or email.
func (db *DB) GetUserByLogin(ctx context.Context, login string) (*models.AdminUser, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	user, err := scanUser(db.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM admin_users WHERE username = $1 OR email = $1", login))
	observe(ctx, "users.get_by_login", start, err)
	return user, err
}

// GetUserByID fetches an admin account by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.AdminUser, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	user, err := scanUser(db.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM admin_users WHERE id = $1", id))
	observe(ctx, "users.get_by_id", start, err)
	return user, err
}

// ListUsers returns all admin accounts, oldest first.
func (db *DB) ListUsers(ctx context.Context) ([]models.AdminUser, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	rows, err := db.pool.Query(ctx,
		"SELECT "+userColumns+" FROM admin_users ORDER BY created_at ASC")
	if err != nil {
		err = fmt.Errorf("listing users: %w", err)
		observe(ctx, "users.list", start, err)
		return nil, err
	}
	defer rows.Close()

	var users []models.AdminUser
	for rows.Next() {
		var u models.AdminUser
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.LastLoginAt); err != nil {
			err = fmt.Errorf("scanning user: %w", err)
			observe(ctx, "users.list", start, err)
			return nil, err
		}
		users = append(users, u)
	}
	err = rows.Err()
	observe(ctx, "users.list", start, err)
	return users, err
}

// SetUserActive flips an account's active flag. Returns ErrNotFound for
// an unknown ID.
func (db *DB) SetUserActive(ctx context.Context, id int64, active bool) error {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	tag, err := db.pool.Exec(ctx,
		"UPDATE admin_users SET is_active = $1 WHERE id = $2", active, id)
	if err != nil {
		err = fmt.Errorf("toggling user: %w", err)
	} else if tag.RowsAffected() == 0 {
		err = ErrNotFound
	}
	observe(ctx, "users.set_active", start, err)
	return err
}

// UpdatePasswordHash replaces an account's password hash.
func (db *DB) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	tag, err := db.pool.Exec(ctx,
		"UPDATE admin_users SET password_hash = $1 WHERE id = $2", hash, id)
	if err != nil {
		err = fmt.Errorf("updating password hash: %w", err)
	} else if tag.RowsAffected() == 0 {
		err = ErrNotFound
	}
	observe(ctx, "users.update_password", start, err)
	return err
}

// TouchLastLogin records a successful login time.
func (db *DB) TouchLastLogin(ctx context.Context, id int64, when time.Time) error {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	_, err := db.pool.Exec(ctx,
		"UPDATE admin_users SET last_login_at = $1 WHERE id = $2", when, id)
	if err != nil {
		err = fmt.Errorf("recording login time: %w", err)
	}
	observe(ctx, "users.touch_last_login", start, err)
	return err
}

// CountUsers returns the number of admin accounts.
func (db *DB) CountUsers(ctx context.Context) (int64, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	var n int64
	err := db.pool.QueryRow(ctx, "SELECT count(*) FROM admin_users").Scan(&n)
	if err != nil {
		err = fmt.Errorf("counting users: %w", err)
	}
	observe(ctx, "users.count", start, err)
	return n, err
}
