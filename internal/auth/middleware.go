// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rmarins/linktally/internal/models"
)

type contextKey string

const (
	userKey  contextKey = "auth_user"
	tokenKey contextKey = "auth_token"
)

// UserFromContext returns the authenticated admin set by Middleware.
func UserFromContext(ctx context.Context) (*models.AdminUser, bool) {
	user, ok := ctx.Value(userKey).(*models.AdminUser)
	return user, ok
}

// TokenFromContext returns the raw bearer token set by Middleware, for
// handlers that revoke it (logout).
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// Middleware returns an http middleware that requires a verified
// session. Unauthenticated requests get the supplied reject handler;
// authenticated ones proceed with the user and token on the context.
func (s *Service) Middleware(reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				reject(w, r)
				return
			}

			user, err := s.VerifySession(r.Context(), token)
			if err != nil {
				reject(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
