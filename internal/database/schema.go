// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package database

import (
	"context"
	"fmt"
)

// schemaStatements create the full schema. Each statement is idempotent
// so startup can run them unconditionally.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS links (
		id           BIGSERIAL PRIMARY KEY,
		short_code   TEXT NOT NULL UNIQUE,
		original_url TEXT NOT NULL,
		title        TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT '',
		is_custom    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at   TIMESTAMPTZ,
		clicks       BIGINT NOT NULL DEFAULT 0,
		is_active    BOOLEAN NOT NULL DEFAULT TRUE,
		owner_ip     TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS clicks (
		id         BIGSERIAL PRIMARY KEY,
		link_id    BIGINT NOT NULL REFERENCES links(id) ON DELETE CASCADE,
		clicked_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		referrer   TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		browser    TEXT NOT NULL DEFAULT '',
		platform   TEXT NOT NULL DEFAULT '',
		is_bot     BOOLEAN NOT NULL DEFAULT FALSE
	)`,

	`CREATE TABLE IF NOT EXISTS admin_users (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		full_name     TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_login_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS admin_sessions (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES admin_users(id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_links_short_code ON links (short_code)`,
	`CREATE INDEX IF NOT EXISTS idx_links_owner_ip ON links (owner_ip)`,
	`CREATE INDEX IF NOT EXISTS idx_links_expires_at ON links (expires_at) WHERE expires_at IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_clicks_link_id ON clicks (link_id)`,
	`CREATE INDEX IF NOT EXISTS idx_clicks_clicked_at ON clicks (clicked_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_token_hash ON admin_sessions (token_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON admin_sessions (expires_at)`,
}

// ensureSchema creates tables and indexes that do not exist yet.
func (db *DB) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
