// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package api

import (
	"net/http"
	"strconv"

	"github.com/rmarins/linktally/internal/models"
	"github.com/rmarins/linktally/internal/shortener"
)

// Pagination bounds for the admin link listing.
const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// adminOwner is the owner value recorded on links created through the
// admin API. It is not a routable address, so no client IP can match it.
const adminOwner = "admin"

// listLinksResponse is the paginated admin link listing payload.
type listLinksResponse struct {
	Links  []models.LinkResponse `json:"links"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// ListUsers handles GET /admin/api/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, users)
}

// CreateUser handles POST /admin/api/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	user, err := h.auth.CreateUser(r.Context(), req.Username, req.Email, req.Password, req.FullName)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, user)
}

// ToggleUser handles PATCH /admin/api/users/{id}/toggle. Deactivating an
// account revokes its sessions immediately.
func (h *Handler) ToggleUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	user, err := h.auth.ToggleUserActive(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, user)
}

// SystemStats handles GET /admin/api/stats: the dashboard aggregates.
func (h *Handler) SystemStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.links.SystemStats(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, stats)
}

// ListLinks handles GET /admin/api/urls with limit/offset pagination.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	links, total, err := h.links.ListAll(r.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	base := h.baseURL(r)
	now := h.now()
	resp := listLinksResponse{
		Links:  make([]models.LinkResponse, len(links)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for i := range links {
		resp.Links[i] = models.NewLinkResponse(&links[i], base, now)
	}
	respondJSON(w, r, http.StatusOK, resp)
}

// CreateLink handles POST /admin/api/urls. Links created here are owned
// by the reserved "admin" identity instead of a client IP, so they never
// show up in anyone's self-service listing.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
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
		OwnerIP:     adminOwner,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, models.NewLinkResponse(link, h.baseURL(r), h.now()))
}

// GetLink handles GET /admin/api/urls/{id}.
func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	link, err := h.links.LinkDetails(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, models.NewLinkResponse(link, h.baseURL(r), h.now()))
}

// UpdateLink handles PUT /admin/api/urls/{id}. Absent fields are left
// unchanged.
func (h *Handler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req models.UpdateLinkRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	link, err := h.links.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, models.NewLinkResponse(link, h.baseURL(r), h.now()))
}

// DeleteLink handles DELETE /admin/api/urls/{id}: permanent removal of
// the link and its click history.
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.links.HardDelete(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]int64{"id": id})
}

// ToggleLink handles PATCH /admin/api/urls/{id}/toggle.
func (h *Handler) ToggleLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	link, err := h.links.ToggleActive(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, models.NewLinkResponse(link, h.baseURL(r), h.now()))
}

// CleanupExpired handles DELETE /admin/api/cleanup/expired, removing
// expired links and their clicks on demand.
func (h *Handler) CleanupExpired(w http.ResponseWriter, r *http.Request) {
	result, err := h.links.CleanExpired(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

// CleanupSessions handles DELETE /admin/api/cleanup/sessions.
func (h *Handler) CleanupSessions(w http.ResponseWriter, r *http.Request) {
	n, err := h.auth.CleanExpiredSessions(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, models.CleanupResult{SessionsDeleted: n})
}

// queryInt parses an integer query parameter with a fallback.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
