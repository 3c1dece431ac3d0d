// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rmarins/linktally/internal/models"
)

// InsertClick records one click event.
func (db *DB) InsertClick(ctx context.Context, click *models.Click) error {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	err := db.pool.QueryRow(ctx,
		`INSERT INTO clicks (link_id, referrer, user_agent, ip_address, browser, platform, is_bot)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, clicked_at`,
		click.LinkID, click.Referrer, click.UserAgent, click.IPAddress, click.Browser, click.Platform, click.IsBot,
	).Scan(&click.ID, &click.ClickedAt)
	if err != nil {
		err = fmt.Errorf("inserting click: %w", err)
	}
	observe(ctx, "clicks.insert", start, err)
	return err
}

// RecentClicks returns the newest click events for a link.
func (db *DB) RecentClicks(ctx context.Context, linkID int64, limit int) ([]models.Click, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	rows, err := db.pool.Query(ctx,
		`SELECT id, link_id, clicked_at, referrer, user_agent, ip_address, browser, platform, is_bot
		 FROM clicks WHERE link_id = $1 ORDER BY clicked_at DESC LIMIT $2`,
		linkID, limit)
	if err != nil {
		err = fmt.Errorf("listing recent clicks: %w", err)
		observe(ctx, "clicks.recent", start, err)
		return nil, err
	}
	defer rows.Close()

	var clicks []models.Click
	for rows.Next() {
		var c models.Click
		if err := rows.Scan(&c.ID, &c.LinkID, &c.ClickedAt, &c.Referrer, &c.UserAgent, &c.IPAddress, &c.Browser, &c.Platform, &c.IsBot); err != nil {
			err = fmt.Errorf("scanning click: %w", err)
			observe(ctx, "clicks.recent", start, err)
			return nil, err
		}
		clicks = append(clicks, c)
	}
	err = rows.Err()
	observe(ctx, "clicks.recent", start, err)
	return clicks, err
}

// ClicksByDay aggregates a link's clicks per day over the `days` days
// before now, oldest bucket first. Days without clicks are omitted.
func (db *DB) ClicksByDay(ctx context.Context, linkID int64, days int, now time.Time) ([]models.ClickBucket, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	rows, err := db.pool.Query(ctx,
		`SELECT to_char(date_trunc('day', clicked_at), 'YYYY-MM-DD') AS day, count(*)
		 FROM clicks
		 WHERE link_id = $1 AND clicked_at >= $3::timestamptz - ($2 || ' days')::interval
		 GROUP BY 1 ORDER BY 1`,
		linkID, days, now)
	if err != nil {
		err = fmt.Errorf("aggregating clicks by day: %w", err)
		observe(ctx, "clicks.by_day", start, err)
		return nil, err
	}

	buckets, err := collectBuckets(rows)
	observe(ctx, "clicks.by_day", start, err)
	return buckets, err
}

// TopReferrers returns the most common referrers for a link. Clicks with
// an empty referrer are reported under "direct".
func (db *DB) TopReferrers(ctx context.Context, linkID int64, limit int) ([]models.ReferrerCount, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	rows, err := db.pool.Query(ctx,
		`SELECT CASE WHEN referrer = '' THEN 'direct' ELSE referrer END AS ref, count(*)
		 FROM clicks WHERE link_id = $1
		 GROUP BY 1 ORDER BY 2 DESC LIMIT $2`,
		linkID, limit)
	if err != nil {
		err = fmt.Errorf("aggregating referrers: %w", err)
		observe(ctx, "clicks.top_referrers", start, err)
		return nil, err
	}
	defer rows.Close()

	var out []models.ReferrerCount
	for rows.Next() {
		var rc models.ReferrerCount
		if err := rows.Scan(&rc.Referrer, &rc.Clicks); err != nil {
			err = fmt.Errorf("scanning referrer row: %w", err)
			observe(ctx, "clicks.top_referrers", start, err)
			return nil, err
		}
		out = append(out, rc)
	}
	err = rows.Err()
	observe(ctx, "clicks.top_referrers", start, err)
	return out, err
}

// AgentBreakdown aggregates a link's clicks by the given column, which
// must be "browser" or "platform".
func (db *DB) AgentBreakdown(ctx context.Context, linkID int64, column string, limit int) ([]models.AgentCount, error) {
	if column != "browser" && column != "platform" {
		return nil, fmt.Errorf("unsupported breakdown column %q", column)
	}

	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	rows, err := db.pool.Query(ctx,
		fmt.Sprintf(`SELECT CASE WHEN %s = '' THEN 'unknown' ELSE %s END AS name, count(*)
		 FROM clicks WHERE link_id = $1
		 GROUP BY 1 ORDER BY 2 DESC LIMIT $2`, column, column),
		linkID, limit)
	if err != nil {
		err = fmt.Errorf("aggregating %s breakdown: %w", column, err)
		observe(ctx, "clicks.agent_breakdown", start, err)
		return nil, err
	}
	defer rows.Close()

	var out []models.AgentCount
	for rows.Next() {
		var ac models.AgentCount
		if err := rows.Scan(&ac.Name, &ac.Clicks); err != nil {
			err = fmt.Errorf("scanning agent row: %w", err)
			observe(ctx, "clicks.agent_breakdown", start, err)
			return nil, err
		}
		out = append(out, ac)
	}
	err = rows.Err()
	observe(ctx, "clicks.agent_breakdown", start, err)
	return out, err
}

func collectBuckets(rows pgx.Rows) ([]models.ClickBucket, error) {
	defer rows.Close()
	var buckets []models.ClickBucket
	for rows.Next() {
		var b models.ClickBucket
		if err := rows.Scan(&b.Day, &b.Clicks); err != nil {
			return nil, fmt.Errorf("scanning bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating buckets: %w", err)
	}
	return buckets, nil
}
