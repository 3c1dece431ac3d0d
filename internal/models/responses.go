// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package models

import "time"

// LinkResponse is the public representation of a link, with the composed
// short URL and computed status attached.
type LinkResponse struct {
	ID          int64      `json:"id"`
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"`
	OriginalURL string     `json:"original_url"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	IsCustom    bool       `json:"is_custom"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Clicks      int64      `json:"clicks"`
	IsActive    bool       `json:"is_active"`
	Status      LinkStatus `json:"status"`
	QRCode      string     `json:"qr_code,omitempty"`
}

// NewLinkResponse builds a LinkResponse from a Link and a base URL.
func NewLinkResponse(l *Link, baseURL string, now time.Time) LinkResponse {
	return LinkResponse{
		ID:          l.ID,
		ShortCode:   l.ShortCode,
		ShortURL:    baseURL + "/" + l.ShortCode,
		OriginalURL: l.OriginalURL,
		Title:       l.Title,
		Description: l.Description,
		IsCustom:    l.IsCustom,
		CreatedAt:   l.CreatedAt,
		ExpiresAt:   l.ExpiresAt,
		Clicks:      l.Clicks,
		IsActive:    l.IsActive,
		Status:      l.Status(now),
	}
}

// LinkStats is the per-link analytics payload for GET /api/stats/{code}.
type LinkStats struct {
	Link         LinkResponse    `json:"link"`
	TotalClicks  int64           `json:"total_clicks"`
	ClicksByDay  []ClickBucket   `json:"clicks_by_day"`
	TopReferrers []ReferrerCount `json:"top_referrers"`
	Browsers     []AgentCount    `json:"browsers"`
	Platforms    []AgentCount    `json:"platforms"`
	RecentClicks []Click         `json:"recent_clicks"`
}

// SystemStats is the admin dashboard aggregate payload.
type SystemStats struct {
	TotalLinks     int64         `json:"total_links"`
	ActiveLinks    int64         `json:"active_links"`
	ExpiredLinks   int64         `json:"expired_links"`
	TotalClicks    int64         `json:"total_clicks"`
	ClicksToday    int64         `json:"clicks_today"`
	LinksToday     int64         `json:"links_today"`
	ClicksByDay    []ClickBucket `json:"clicks_by_day"`
	TopLinks       []Link        `json:"top_links"`
	ActiveSessions int64         `json:"active_sessions"`
	TotalUsers     int64         `json:"total_users"`
}

// CleanupResult reports what a maintenance sweep removed.
type CleanupResult struct {
	LinksDeleted    int64 `json:"links_deleted"`
	ClicksDeleted   int64 `json:"clicks_deleted"`
	SessionsDeleted int64 `json:"sessions_deleted"`
}
