// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rmarins/linktally/internal/logging"
	"github.com/rmarins/linktally/internal/models"
	"github.com/rmarins/linktally/internal/qr"
	"github.com/rmarins/linktally/internal/shortener"
)

// Shorten handles POST /api/shorten. Anyone may create a link; the
// client IP is recorded as the owner for later self-service management.
func (h *Handler) Shorten(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLinkRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	link, err := h.links.CreateLink(r.Context(), shortener.CreateLinkParams{
		URL:         req.URL,
		CustomCode:  req.CustomCode,
		Title:       req.Title,
		Description: req.Description,
		ExpiresIn:   req.ExpiresIn,
		OwnerIP:     clientIP(r),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	resp := models.NewLinkResponse(link, h.baseURL(r), h.now())
	if code, err := qr.DataURL(resp.ShortURL); err == nil {
		resp.QRCode = code
	} else {
		logging.Ctx(r.Context()).Warn().Err(err).Str("short_code", link.ShortCode).Msg("qr generation failed")
	}
	respondJSON(w, r, http.StatusCreated, resp)
}

// Manage handles GET /api/manage: every link created from the caller's
// IP address, newest first.
func (h *Handler) Manage(w http.ResponseWriter, r *http.Request) {
	links, err := h.links.LinksByOwner(r.Context(), clientIP(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	base := h.baseURL(r)
	now := h.now()
	resp := make([]models.LinkResponse, len(links))
	for i := range links {
		resp[i] = models.NewLinkResponse(&links[i], base, now)
	}
	respondJSON(w, r, http.StatusOK, resp)
}

// DeleteOwned handles DELETE /api/delete/{id}. Deactivates a link the
// caller's IP created; the record and its analytics stay in storage.
// A link the caller does not own is reported as a bad request rather
// than a missing resource.
func (h *Handler) DeleteOwned(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.links.SoftDelete(r.Context(), id, clientIP(r)); err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			respondError(w, r, http.StatusBadRequest, "not_owner", "URL not found or not owned by you")
			return
		}
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]int64{"id": id})
}

// LinkStats handles GET /api/stats/{code}: the public analytics payload
// for a short code.
func (h *Handler) LinkStats(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	stats, err := h.links.Stats(r.Context(), code, h.baseURL(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, stats)
}

// pathID parses the {id} route parameter. A false return means the
// error response has been written.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}
