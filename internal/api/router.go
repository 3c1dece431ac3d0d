// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmarins/linktally/internal/config"
	"github.com/rmarins/linktally/internal/metrics"
	"github.com/rmarins/linktally/internal/middleware"
)

// NewRouter assembles the full route tree with its middleware stack.
func NewRouter(cfg *config.Config, h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Health stays outside the limiter so probes cannot be starved
		// by client traffic.
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			if !cfg.Security.RateLimitDisabled {
				r.Use(rateLimiter("api", cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow))
			}

			r.Post("/shorten", h.Shorten)
			r.Get("/manage", h.Manage)
			r.Delete("/delete/{id}", h.DeleteOwned)
			r.Get("/stats/{code}", h.LinkStats)
		})
	})

	r.Route("/admin/api", func(r chi.Router) {
		if !cfg.Security.RateLimitDisabled {
			r.Use(rateLimiter("admin", cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow))
		}

		// Login gets its own, much tighter limiter on top of the
		// general one.
		r.Group(func(r chi.Router) {
			if !cfg.Security.RateLimitDisabled {
				r.Use(rateLimiter("login", cfg.Security.LoginRateLimitReqs, cfg.Security.LoginRateLimitWindow))
			}
			r.Post("/login", h.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware(rejectUnauthenticated))

			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)
			r.Post("/change-password", h.ChangePassword)

			r.Get("/users", h.ListUsers)
			r.Post("/users", h.CreateUser)
			r.Patch("/users/{id}/toggle", h.ToggleUser)

			r.Get("/stats", h.SystemStats)

			r.Route("/urls", func(r chi.Router) {
				r.Get("/", h.ListLinks)
				r.Post("/", h.CreateLink)
				r.Get("/{id}", h.GetLink)
				r.Put("/{id}", h.UpdateLink)
				r.Delete("/{id}", h.DeleteLink)
				r.Patch("/{id}/toggle", h.ToggleLink)
			})

			r.Delete("/cleanup/expired", h.CleanupExpired)
			r.Delete("/cleanup/sessions", h.CleanupSessions)
		})
	})

	// The catch-all redirect route goes last so fixed routes win.
	r.Get("/{code}", h.Redirect)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		serveNotFoundPage(w)
	})

	return r
}

// rateLimiter builds an IP-keyed limiter that counts rejections under
// the given route group label.
func rateLimiter(route string, requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RateLimitRejections.WithLabelValues(route).Inc()
			respondError(w, r, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
		}),
	)
}

// rejectUnauthenticated is the auth middleware's failure handler.
func rejectUnauthenticated(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusUnauthorized, "unauthenticated", "authentication required")
}
