// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/rmarins/linktally/internal/auth"
	"github.com/rmarins/linktally/internal/config"
	"github.com/rmarins/linktally/internal/models"
	"github.com/rmarins/linktally/internal/shortener"
	"github.com/rmarins/linktally/internal/validation"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// envelope mirrors models.APIResponse with raw data for retyping.
type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

type testEnv struct {
	store  *fakeStore
	auth   *auth.Service
	router http.Handler
}

// newTestEnv wires the full router over in-memory storage. mutate may
// be nil; it runs on the config before wiring.
func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Security.JWTSecret = testSecret
	cfg.Security.SessionTimeout = time.Hour
	cfg.Security.RateLimitDisabled = true
	cfg.Security.CORSOrigins = []string{"*"}
	cfg.Policy.MaxURLLength = 2048
	if mutate != nil {
		mutate(cfg)
	}

	store := newFakeStore()
	policy := validation.URLPolicy{
		MaxLength:           cfg.Policy.MaxURLLength,
		AllowPrivateTargets: cfg.Policy.AllowPrivateTargets,
	}
	linkSvc := shortener.New(store, policy, nil, time.Minute, time.Minute)

	tokens, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	// Minimum bcrypt cost keeps the test suite fast.
	authSvc := auth.NewService(store, auth.NewPasswordHasher(4), tokens)

	h := NewHandler(linkSvc, authSvc, cfg, nil)
	return &testEnv{store: store, auth: authSvc, router: NewRouter(cfg, h)}
}

// request executes one request against the router. A non-nil body is
// JSON-encoded; token, when set, goes in the Authorization header.
func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// decode unwraps the response envelope and unmarshals its data into out
// when out is non-nil.
func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) *envelope {
	t.Helper()

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding envelope: %v\nbody: %s", err, rec.Body.String())
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decoding data: %v\ndata: %s", err, env.Data)
		}
	}
	return &env
}

// createAdmin provisions an admin account directly on the service.
func (e *testEnv) createAdmin(t *testing.T, username, password string) *models.AdminUser {
	t.Helper()
	user, err := e.auth.CreateUser(context.Background(), username, username+"@example.com", password, "")
	if err != nil {
		t.Fatalf("creating admin %q: %v", username, err)
	}
	return user
}

// login authenticates through the HTTP API and returns the token.
func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()

	rec := e.request(t, http.MethodPost, "/admin/api/login", "", models.LoginRequest{
		Username: username,
		Password: password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	decode(t, rec, &resp)
	if resp.Token == "" {
		t.Fatal("login response without token")
	}
	return resp.Token
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

// shortenURL creates a link through the public API.
func (e *testEnv) shortenURL(t *testing.T, target, customCode string) models.LinkResponse {
	t.Helper()

	rec := e.request(t, http.MethodPost, "/api/shorten", "", models.CreateLinkRequest{
		URL:        target,
		CustomCode: customCode,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("shorten status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp models.LinkResponse
	decode(t, rec, &resp)
	return resp
}
