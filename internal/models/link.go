// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

// Package models defines the core domain types shared across the service:
// links, click events, admin users, sessions, and the request/response
// shapes the HTTP layer exchanges with clients.
package models

import "time"

// LinkStatus describes the effective state of a short link.
//
// Precedence when several conditions hold at once: a deactivated link is
// always "inactive", an expired one "expired", a never-clicked one
// "unused", and only otherwise "active".
type LinkStatus string

const (
	StatusInactive LinkStatus = "inactive"
	StatusExpired  LinkStatus = "expired"
	StatusUnused   LinkStatus = "unused"
	StatusActive   LinkStatus = "active"
)

// Link is a shortened URL record.
type Link struct {
	ID          int64      `json:"id"`
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	IsCustom    bool       `json:"is_custom"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Clicks      int64      `json:"clicks"`
	IsActive    bool       `json:"is_active"`
	OwnerIP     string     `json:"-"`
}

// Expired reports whether the link has an expiry in the past as of now.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// Status computes the link's effective status as of now.
func (l *Link) Status(now time.Time) LinkStatus {
	switch {
	case !l.IsActive:
		return StatusInactive
	case l.Expired(now):
		return StatusExpired
	case l.Clicks == 0:
		return StatusUnused
	default:
		return StatusActive
	}
}

// Resolvable reports whether a redirect may be served for this link.
// Only active, unexpired links resolve.
func (l *Link) Resolvable(now time.Time) bool {
	return l.IsActive && !l.Expired(now)
}
