// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package models

import "time"

// Click is a single recorded redirect event for a link.
type Click struct {
	ID        int64     `json:"id"`
	LinkID    int64     `json:"link_id"`
	ClickedAt time.Time `json:"clicked_at"`
	Referrer  string    `json:"referrer,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"-"`
	Browser   string    `json:"browser,omitempty"`
	Platform  string    `json:"platform,omitempty"`
	IsBot     bool      `json:"is_bot"`
}

// ClickBucket is a per-day click count used in time series responses.
type ClickBucket struct {
	Day    string `json:"day"`
	Clicks int64  `json:"clicks"`
}

// ReferrerCount aggregates clicks by referrer.
type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Clicks   int64  `json:"clicks"`
}

// AgentCount aggregates clicks by browser or platform summary.
type AgentCount struct {
	Name   string `json:"name"`
	Clicks int64  `json:"clicks"`
}
