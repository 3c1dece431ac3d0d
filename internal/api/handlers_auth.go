// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package api

import (
	"net/http"
	"time"

	"github.com/rmarins/linktally/internal/auth"
	"github.com/rmarins/linktally/internal/models"
)

// loginResponse is the payload of a successful login.
type loginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	User      *models.AdminUser `json:"user"`
}

// Login handles POST /admin/api/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	token, user, err := h.auth.Authenticate(r.Context(), req.Username, req.Password, auth.LoginMeta{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: h.now().Add(h.cfg.Security.SessionTimeout),
		User:      user,
	})
}

// Logout handles POST /admin/api/logout, revoking the caller's session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.TokenFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "unauthenticated", "authentication required")
		return
	}

	if err := h.auth.Logout(r.Context(), token); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me handles GET /admin/api/me: the authenticated account.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "unauthenticated", "authentication required")
		return
	}
	respondJSON(w, r, http.StatusOK, user)
}

// ChangePassword handles POST /admin/api/change-password. Every session
// of the account is revoked, including the one making the request, so
// the client must log in again.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "unauthenticated", "authentication required")
		return
	}

	var req models.ChangePasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.auth.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"message": "password changed, log in again"})
}
