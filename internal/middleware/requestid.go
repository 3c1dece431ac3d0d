// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

// Package middleware provides the HTTP middleware shared by all routes:
// request IDs, Prometheus instrumentation, and security headers.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rmarins/linktally/internal/logging"
)

// RequestID tags each request with a unique ID, honoring an upstream
// proxy's X-Request-ID when present. The ID is echoed in the response
// header and attached to the logging context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
