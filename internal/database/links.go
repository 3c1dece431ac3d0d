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

const linkColumns = "id, short_code, original_url, title, description, is_custom, created_at, expires_at, clicks, is_active, owner_ip"

func scanLink(row pgx.Row) (*models.Link, error) {
	var l models.Link
	err := row.Scan(&l.ID, &l.ShortCode, &l.OriginalURL, &l.Title, &l.Description, &l.IsCustom, &l.CreatedAt, &l.ExpiresAt, &l.Clicks, &l.IsActive, &l.OwnerIP)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// InsertLink stores a new link and fills in its generated ID and
// creation time. A short code collision returns ErrCodeTaken.
func (db *DB) InsertLink(ctx context.Context, link *models.Link) error {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	err := db.pool.QueryRow(ctx,
		`INSERT INTO links (short_code, original_url, title, description, is_custom, expires_at, is_active, owner_ip)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		link.ShortCode, link.OriginalURL, link.Title, link.Description, link.IsCustom,
		link.ExpiresAt, link.IsActive, link.OwnerIP,
	).Scan(&link.ID, &link.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		err = ErrCodeTaken
	} else if err != nil {
		err = fmt.Errorf("inserting link: %w", err)
	}
	observe(ctx, "links.insert", start, err)
	return err
}

// GetLinkByCode fetches a link by its short code.
func (db *DB) GetLinkByCode(ctx context.Context, code string) (*models.Link, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	link, err := scanLink(db.pool.QueryRow(ctx,
		"SELECT "+linkColumns+" FROM links WHERE short_code = $1", code))
	observe(ctx, "links.get_by_code", start, err)
	return link, err
}

// GetLinkByID fetches a link by its primary key.
func (db *DB) GetLinkByID(ctx context.Context, id int64) (*models.Link, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	link, err := scanLink(db.pool.QueryRow(ctx,
		"SELECT "+linkColumns+" FROM links WHERE id = $1", id))
	observe(ctx, "links.get_by_id", start, err)
	return link, err
}

// CodeExists reports whether a short code is already assigned to a link
// other than excludeID. Pass excludeID 0 when creating.
func (db *DB) CodeExists(ctx context.Context, code string, excludeID int64) (bool, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	var exists bool
	err := db.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM links WHERE short_code = $1 AND id <> $2)",
		code, excludeID,
	).Scan(&exists)
	if err != nil {
		err = fmt.Errorf("checking code: %w", err)
	}
	observe(ctx, "links.code_exists", start, err)
	return exists, err
}

// ListLinksByOwner returns all links created from the given owner IP,
// newest first.
func (db *DB) ListLinksByOwner(ctx context.Context, ownerIP string) ([]models.Link, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	rows, err := db.pool.Query(ctx,
		"SELECT "+linkColumns+" FROM links WHERE owner_ip = $1 ORDER BY created_at DESC", ownerIP)
	if err != nil {
		err = fmt.Errorf("listing owner links: %w", err)
		observe(ctx, "links.list_by_owner", start, err)
		return nil, err
	}

	links, err := collectLinks(rows)
	observe(ctx, "links.list_by_owner", start, err)
	return links, err
}

// ListLinks returns a page of all links, newest first, with the total
// row count for pagination.
func (db *DB) ListLinks(ctx context.Context, limit, offset int) ([]models.Link, int64, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	var total int64
	if err := db.pool.QueryRow(ctx, "SELECT count(*) FROM links").Scan(&total); err != nil {
		err = fmt.Errorf("counting links: %w", err)
		observe(ctx, "links.list", start, err)
		return nil, 0, err
	}

	rows, err := db.pool.Query(ctx,
		"SELECT "+linkColumns+" FROM links ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		err = fmt.Errorf("listing links: %w", err)
		observe(ctx, "links.list", start, err)
		return nil, 0, err
	}

	links, err := collectLinks(rows)
	observe(ctx, "links.list", start, err)
	return links, total, err
}

// UpdateLink persists mutable link fields. Returns ErrNotFound when the
// ID does not exist and ErrCodeTaken on a short code collision.
func (db *DB) UpdateLink(ctx context.Context, link *models.Link) error {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	tag, err := db.pool.Exec(ctx,
		`UPDATE links SET short_code = $1, original_url = $2, title = $3, description = $4,
		        expires_at = $5, is_active = $6
		 WHERE id = $7`,
		link.ShortCode, link.OriginalURL, link.Title, link.Description,
		link.ExpiresAt, link.IsActive, link.ID)

	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
		err = ErrCodeTaken
	case err != nil:
		err = fmt.Errorf("updating link: %w", err)
	case tag.RowsAffected() == 0:
		err = ErrNotFound
	}
	observe(ctx, "links.update", start, err)
	return err
}

// SetLinkActive flips a link's active flag. Returns ErrNotFound for an
// unknown ID.
func (db *DB) SetLinkActive(ctx context.Context, id int64, active bool) error {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	tag, err := db.pool.Exec(ctx,
		"UPDATE links SET is_active = $1 WHERE id = $2", active, id)
	if err != nil {
		err = fmt.Errorf("toggling link: %w", err)
	} else if tag.RowsAffected() == 0 {
		err = ErrNotFound
	}
	observe(ctx, "links.set_active", start, err)
	return err
}

// SoftDeleteOwnedLink deactivates a link only when it belongs to the
// given owner IP. Returns ErrNotFound when no such owned link exists,
// whether the ID is unknown or owned by someone else.
func (db *DB) SoftDeleteOwnedLink(ctx context.Context, id int64, ownerIP string) error {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	tag, err := db.pool.Exec(ctx,
		"UPDATE links SET is_active = FALSE WHERE id = $1 AND owner_ip = $2", id, ownerIP)
	if err != nil {
		err = fmt.Errorf("soft deleting link: %w", err)
	} else if tag.RowsAffected() == 0 {
		err = ErrNotFound
	}
	observe(ctx, "links.soft_delete_owned", start, err)
	return err
}

// DeleteLink removes a link and its click events permanently.
func (db *DB) DeleteLink(ctx context.Context, id int64) error {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	err := pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM clicks WHERE link_id = $1", id); err != nil {
			return fmt.Errorf("deleting clicks: %w", err)
		}
		tag, err := tx.Exec(ctx, "DELETE FROM links WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("deleting link: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	observe(ctx, "links.delete", start, err)
	return err
}

// IncrementClicks bumps a link's click counter atomically.
func (db *DB) IncrementClicks(ctx context.Context, id int64) error {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	_, err := db.pool.Exec(ctx, "UPDATE links SET clicks = clicks + 1 WHERE id = $1", id)
	if err != nil {
		err = fmt.Errorf("incrementing clicks: %w", err)
	}
	observe(ctx, "links.increment_clicks", start, err)
	return err
}

// CleanExpiredLinks deletes every expired link and its clicks in one
// transaction. Safe to run repeatedly.
func (db *DB) CleanExpiredLinks(ctx context.Context, now time.Time) (linksDeleted, clicksDeleted int64, err error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	err = pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		clickTag, err := tx.Exec(ctx,
			`DELETE FROM clicks WHERE link_id IN
			   (SELECT id FROM links WHERE expires_at IS NOT NULL AND expires_at < $1)`, now)
		if err != nil {
			return fmt.Errorf("deleting expired clicks: %w", err)
		}
		linkTag, err := tx.Exec(ctx,
			"DELETE FROM links WHERE expires_at IS NOT NULL AND expires_at < $1", now)
		if err != nil {
			return fmt.Errorf("deleting expired links: %w", err)
		}
		clicksDeleted = clickTag.RowsAffected()
		linksDeleted = linkTag.RowsAffected()
		return nil
	})
	observe(ctx, "links.clean_expired", start, err)
	return linksDeleted, clicksDeleted, err
}

func collectLinks(rows pgx.Rows) ([]models.Link, error) {
	defer rows.Close()
	var links []models.Link
	for rows.Next() {
		var l models.Link
		if err := rows.Scan(&l.ID, &l.ShortCode, &l.OriginalURL, &l.Title, &l.Description, &l.IsCustom, &l.CreatedAt, &l.ExpiresAt, &l.Clicks, &l.IsActive, &l.OwnerIP); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating links: %w", err)
	}
	return links, nil
}
