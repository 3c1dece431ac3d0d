// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rmarins/linktally/internal/logging"
	"github.com/rmarins/linktally/internal/shortener"
)

// notFoundPage is the only HTML this service serves. Redirect misses
// land human eyeballs, so they get a page instead of a JSON envelope.
const notFoundPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Link not found</title>
<style>
body { font-family: system-ui, sans-serif; display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; background: #f5f5f5; color: #333; }
main { text-align: center; }
h1 { font-size: 4rem; margin: 0; }
p { color: #666; }
</style>
</head>
<body>
<main>
<h1>404</h1>
<p>This short link does not exist, has expired, or was removed.</p>
</main>
</body>
</html>
`

// Redirect handles GET /{code}: resolves the code and issues a
// temporary redirect to the target, recording the click on the way.
// 302 rather than 301 so browsers keep coming back; a cached permanent
// redirect would skip click counting entirely.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	link, err := h.links.Resolve(r.Context(), code, shortener.ClickContext{
		Referrer:  r.Referer(),
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	})
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) || errors.Is(err, shortener.ErrGone) {
			serveNotFoundPage(w)
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Str("code", sanitizeLogValue(code)).Msg("redirect resolution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, link.OriginalURL, http.StatusFound)
}

func serveNotFoundPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(notFoundPage))
}
