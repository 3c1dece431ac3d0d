// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

// Package api implements the HTTP surface: public shortening and
// analytics endpoints, the redirect path, and the authenticated admin
// API, all wrapped in a consistent JSON envelope.
package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rmarins/linktally/internal/auth"
	"github.com/rmarins/linktally/internal/config"
	"github.com/rmarins/linktally/internal/shortener"
)

// Pinger reports storage liveness for the health endpoint.
// *database.DB satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler bundles the services the HTTP endpoints dispatch to.
type Handler struct {
	links *shortener.Service
	auth  *auth.Service
	cfg   *config.Config
	db    Pinger
	now   func() time.Time
}

// NewHandler creates the API handler. db may be nil, in which case the
// health endpoint skips the storage probe.
func NewHandler(links *shortener.Service, authSvc *auth.Service, cfg *config.Config, db Pinger) *Handler {
	return &Handler{
		links: links,
		auth:  authSvc,
		cfg:   cfg,
		db:    db,
		now:   time.Now,
	}
}

// baseURL composes the external base for short URLs. An explicit
// configured base wins; otherwise it is derived from the request,
// honoring X-Forwarded-Proto when a proxy terminates TLS.
func (h *Handler) baseURL(r *http.Request) string {
	if h.cfg.Server.BaseURL != "" {
		return strings.TrimRight(h.cfg.Server.BaseURL, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// clientIP extracts the originating client address, preferring proxy
// headers over the socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the client; later entries are proxies.
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		if ip := strings.TrimSpace(fwd); ip != "" {
			return ip
		}
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Health reports service and storage liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"service": "linktally", "status": "ok"}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			respondJSON(w, r, http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}
	respondJSON(w, r, http.StatusOK, status)
}
