// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

// Package metrics defines the Prometheus instrumentation for LinkTally.
// All metrics are registered on the default registry via promauto and
// exposed by the /metrics endpoint.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linktally_http_requests_total",
			Help: "Total HTTP requests by method, route pattern, and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linktally_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linktally_http_active_requests",
			Help: "Number of HTTP requests currently in flight",
		},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linktally_rate_limit_rejections_total",
			Help: "Requests rejected by rate limiting",
		},
		[]string{"route"},
	)

	// Domain metrics

	LinksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linktally_links_created_total",
			Help: "Short links created, labelled by code origin",
		},
		[]string{"origin"}, // "generated" or "custom"
	)

	RedirectsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linktally_redirects_served_total",
			Help: "Successful short link redirects",
		},
	)

	RedirectsMissed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linktally_redirects_missed_total",
			Help: "Redirect requests that did not resolve",
		},
		[]string{"reason"}, // "not_found", "inactive", "expired"
	)

	CodeGenerationRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linktally_code_generation_retries_total",
			Help: "Collision retries during short code generation",
		},
	)

	ClicksRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linktally_clicks_recorded_total",
			Help: "Click events written to storage",
		},
	)

	ClickRecordFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linktally_click_record_failures_total",
			Help: "Click events dropped due to storage errors",
		},
	)

	// Auth metrics

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linktally_login_attempts_total",
			Help: "Admin login attempts by outcome",
		},
		[]string{"outcome"}, // "success" or "failure"
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linktally_active_sessions",
			Help: "Admin sessions currently live in storage",
		},
	)

	// Storage metrics

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linktally_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linktally_db_query_errors_total",
			Help: "Database query errors",
		},
		[]string{"operation"},
	)

	// Cache metrics

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linktally_cache_hits_total",
			Help: "In-process cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linktally_cache_misses_total",
			Help: "In-process cache misses",
		},
	)

	// Sweeper metrics

	SweepsRun = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linktally_sweeps_run_total",
			Help: "Background expiry sweeps completed",
		},
	)

	SweepDeletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linktally_sweep_deletions_total",
			Help: "Rows removed by background sweeps",
		},
		[]string{"kind"}, // "links", "clicks", "sessions"
	)
)

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordDBQuery records one database operation's duration and outcome.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordLogin records an admin login attempt.
func RecordLogin(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	LoginAttempts.WithLabelValues(outcome).Inc()
}
