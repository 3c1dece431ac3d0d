// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package api

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/rmarins/linktally/internal/auth"
	"github.com/rmarins/linktally/internal/logging"
	"github.com/rmarins/linktally/internal/models"
	"github.com/rmarins/linktally/internal/shortener"
	"github.com/rmarins/linktally/internal/validation"
)

// maxRequestBody caps JSON request bodies. The largest legitimate body
// is a create request with a 2 KB URL; 64 KB leaves generous headroom.
const maxRequestBody = 64 << 10

// respondJSON writes a success envelope. GET responses carry a weak
// ETag over the body so proxies and clients can revalidate cheaply.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	envelope := models.NewSuccessResponse(data, logging.RequestIDFromContext(r.Context()))

	body, err := json.Marshal(envelope)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("response marshaling failed")
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if r.Method == http.MethodGet {
		w.Header().Set("ETag", generateETag(body))
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// respondError writes an error envelope and logs server-side failures.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details ...string) {
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().
			Int("status", status).
			Str("code", code).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Msg(message)
	}

	envelope := models.NewErrorResponse(code, message, logging.RequestIDFromContext(r.Context()), details...)
	body, err := json.Marshal(envelope)
	if err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// respondServiceError maps service sentinels to HTTP statuses. Anything
// unmatched is a 500 with the detail kept out of the response body.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		details := make([]string, 0, len(verr.Errors()))
		for _, fe := range verr.Errors() {
			details = append(details, fe.Error())
		}
		respondError(w, r, http.StatusBadRequest, "validation_failed", "request validation failed", details...)
	case errors.Is(err, validation.ErrURLMalformed),
		errors.Is(err, validation.ErrURLScheme),
		errors.Is(err, validation.ErrURLTooLong),
		errors.Is(err, validation.ErrURLPrivateTarget):
		respondError(w, r, http.StatusBadRequest, "invalid_url", err.Error())
	case errors.Is(err, shortener.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "not_found", "link not found")
	case errors.Is(err, shortener.ErrGone):
		respondError(w, r, http.StatusNotFound, "not_found", "link is inactive or expired")
	case errors.Is(err, shortener.ErrCodeTaken):
		respondError(w, r, http.StatusConflict, "code_taken", "short code already in use")
	case errors.Is(err, shortener.ErrCapacityExhausted):
		respondError(w, r, http.StatusServiceUnavailable, "capacity_exhausted", "could not allocate a short code, retry shortly")
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, r, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
	case errors.Is(err, auth.ErrUnauthenticated):
		respondError(w, r, http.StatusUnauthorized, "unauthenticated", "authentication required")
	case errors.Is(err, auth.ErrUsernameTaken):
		respondError(w, r, http.StatusConflict, "username_taken", "username already in use")
	case errors.Is(err, auth.ErrUserNotFound):
		respondError(w, r, http.StatusNotFound, "not_found", "user not found")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", sanitizeLogValue(r.URL.Path)).Msg("request failed")
		respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// decodeRequest reads, parses, and validates a JSON request body into
// dst. A false return means the response has already been written.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, r, http.StatusBadRequest, "malformed_json", "request body is not valid JSON")
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		respondServiceError(w, r, verr)
		return false
	}
	return true
}

// generateETag produces a weak ETag from the response body. FNV-1a is
// not cryptographic but collision odds at this payload size are
// irrelevant for cache revalidation.
func generateETag(body []byte) string {
	h := fnv.New64a()
	_, _ = h.Write(body)
	return fmt.Sprintf(`W/"%x"`, h.Sum64())
}

// sanitizeLogValue strips control characters from values that end up in
// logs, so a crafted path cannot forge log lines.
func sanitizeLogValue(v string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, v)
}
