// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rmarins/linktally/internal/models"
)

// SystemStats computes the admin dashboard aggregates in one round trip
// per concern.
func (db *DB) SystemStats(ctx context.Context, now time.Time) (*models.SystemStats, error) {
	start := time.Now()
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	stats := &models.SystemStats{}

	err := db.pool.QueryRow(ctx,
		`SELECT count(*),
		        count(*) FILTER (WHERE is_active AND (expires_at IS NULL OR expires_at >= $1)),
		        count(*) FILTER (WHERE expires_at IS NOT NULL AND expires_at < $1),
		        coalesce(sum(clicks), 0),
		        count(*) FILTER (WHERE created_at >= date_trunc('day', $1::timestamptz))
		 FROM links`, now,
	).Scan(&stats.TotalLinks, &stats.ActiveLinks, &stats.ExpiredLinks, &stats.TotalClicks, &stats.LinksToday)
	if err != nil {
		err = fmt.Errorf("aggregating link stats: %w", err)
		observe(ctx, "stats.system", start, err)
		return nil, err
	}

	err = db.pool.QueryRow(ctx,
		`SELECT count(*) FROM clicks WHERE clicked_at >= date_trunc('day', $1::timestamptz)`, now,
	).Scan(&stats.ClicksToday)
	if err != nil {
		err = fmt.Errorf("counting today's clicks: %w", err)
		observe(ctx, "stats.system", start, err)
		return nil, err
	}

	rows, err := db.pool.Query(ctx,
		`SELECT to_char(date_trunc('day', clicked_at), 'YYYY-MM-DD') AS day, count(*)
		 FROM clicks
		 WHERE clicked_at >= $1::timestamptz - interval '30 days'
		 GROUP BY 1 ORDER BY 1`, now)
	if err != nil {
		err = fmt.Errorf("aggregating daily clicks: %w", err)
		observe(ctx, "stats.system", start, err)
		return nil, err
	}
	stats.ClicksByDay, err = collectBuckets(rows)
	if err != nil {
		observe(ctx, "stats.system", start, err)
		return nil, err
	}

	topRows, err := db.pool.Query(ctx,
		"SELECT "+linkColumns+" FROM links ORDER BY clicks DESC, created_at ASC LIMIT 10")
	if err != nil {
		err = fmt.Errorf("listing top links: %w", err)
		observe(ctx, "stats.system", start, err)
		return nil, err
	}
	stats.TopLinks, err = collectLinks(topRows)
	if err != nil {
		observe(ctx, "stats.system", start, err)
		return nil, err
	}

	stats.ActiveSessions, err = db.CountLiveSessions(ctx, now)
	if err != nil {
		observe(ctx, "stats.system", start, err)
		return nil, err
	}
	stats.TotalUsers, err = db.CountUsers(ctx)
	if err != nil {
		observe(ctx, "stats.system", start, err)
		return nil, err
	}

	observe(ctx, "stats.system", start, nil)
	return stats, nil
}
