// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// bcrypt cost 4 keeps these tests fast; production uses 12.
func newTestService(t *testing.T, store Store, opts ...Option) *Service {
	t.Helper()
	tokens, err := NewJWTManager(testSecret, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return NewService(store, NewPasswordHasher(4), tokens, opts...)
}

func seedUser(t *testing.T, s *Service, username, password string) int64 {
	t.Helper()
	user, err := s.CreateUser(context.Background(), username, username+"@example.com", password, "")
	if err != nil {
		t.Fatalf("CreateUser(%q): %v", username, err)
	}
	return user.ID
}

func TestAuthenticate(t *testing.T) {
	store := newFakeStore()
	s := newTestService(t, store)
	seedUser(t, s, "alice", "correct-horse")

	meta := LoginMeta{IPAddress: "203.0.113.9", UserAgent: "curl/8.5"}
	token, user, err := s.Authenticate(context.Background(), "alice", "correct-horse", meta)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if token == "" {
		t.Error("empty token")
	}
	if user.Username != "alice" {
		t.Errorf("username = %q", user.Username)
	}
	if user.LastLoginAt == nil {
		t.Error("LastLoginAt not recorded")
	}
	if store.sessionCount() != 1 {
		t.Errorf("sessions = %d, want 1", store.sessionCount())
	}

	for _, sess := range store.sessions {
		if sess.IPAddress != "203.0.113.9" || sess.UserAgent != "curl/8.5" {
			t.Errorf("session meta = %q/%q, want login metadata recorded", sess.IPAddress, sess.UserAgent)
		}
	}
}

func TestAuthenticateByEmail(t *testing.T) {
	store := newFakeStore()
	s := newTestService(t, store)
	seedUser(t, s, "alice", "correct-horse")

	_, user, err := s.Authenticate(context.Background(), "alice@example.com", "correct-horse", LoginMeta{})
	if err != nil {
		t.Fatalf("Authenticate by email: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("username = %q", user.Username)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	store := newFakeStore()
	s := newTestService(t, store)
	id := seedUser(t, s, "alice", "correct-horse")

	tests := []struct {
		name     string
		username string
		password string
		setup    func()
	}{
		{"wrong password", "alice", "wrong", nil},
		{"unknown username", "nobody", "whatever", nil},
		{"deactivated account", "alice", "correct-horse", func() {
			if err := s.SetUserActive(context.Background(), id, false); err != nil {
				t.Fatal(err)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			_, _, err := s.Authenticate(context.Background(), tt.username, tt.password, LoginMeta{})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("error = %v, want ErrInvalidCredentials", err)
			}
		})
	}

	if store.sessionCount() != 0 {
		t.Errorf("failed logins left %d sessions", store.sessionCount())
	}
}

func TestVerifySession(t *testing.T) {
	store := newFakeStore()
	s := newTestService(t, store)
	seedUser(t, s, "alice", "correct-horse")

	token, _, err := s.Authenticate(context.Background(), "alice", "correct-horse", LoginMeta{})
	if err != nil {
		t.Fatal(err)
	}

	user, err := s.VerifySession(context.Background(), token)
	if err != nil {
		t.Fatalf("VerifySession: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("username = %q", user.Username)
	}
}

func TestVerifySessionRejections(t *testing.T) {
	store := newFakeStore()
	s := newTestService(t, store)
	id := seedUser(t, s, "alice", "correct-horse")

	token, _, err := s.Authenticate(context.Background(), "alice", "correct-horse", LoginMeta{})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("garbage token", func(t *testing.T) {
		if _, err := s.VerifySession(context.Background(), "not.a.jwt"); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("error = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("valid jwt without session row", func(t *testing.T) {
		// A token signed with the right secret but never logged in:
		// JWT verification passes, the session lookup must not.
		orphan, _, err := s.tokens.GenerateToken(id, "alice", "alice@example.com")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.VerifySession(context.Background(), orphan); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("error = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("revoked session", func(t *testing.T) {
		if err := s.Logout(context.Background(), token); err != nil {
			t.Fatal(err)
		}
		if _, err := s.VerifySession(context.Background(), token); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("error = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("deactivated user", func(t *testing.T) {
		token2, _, err := s.Authenticate(context.Background(), "alice", "correct-horse", LoginMeta{})
		if err != nil {
			t.Fatal(err)
		}
		if err := s.SetUserActive(context.Background(), id, false); err != nil {
			t.Fatal(err)
		}
		if _, err := s.VerifySession(context.Background(), token2); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("error = %v, want ErrUnauthenticated", err)
		}
	})
}

func TestLogoutIdempotent(t *testing.T) {
	store := newFakeStore()
	s := newTestService(t, store)
	seedUser(t, s, "alice", "correct-horse")
	token, _, err := s.Authenticate(context.Background(), "alice", "correct-horse", LoginMeta{})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Logout(context.Background(), token); err != nil {
		t.Fatal(err)
	}
	if err := s.Logout(context.Background(), token); err != nil {
		t.Errorf("second logout = %v, want nil", err)
	}
	if err := s.Logout(context.Background(), "never-issued"); err != nil {
		t.Errorf("unknown token logout = %v, want nil", err)
	}
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	store := newFakeStore()
	s := newTestService(t, store)
	id := seedUser(t, s, "alice", "old-password")

	token1, _, err := s.Authenticate(context.Background(), "alice", "old-password", LoginMeta{})
	if err != nil {
		t.Fatal(err)
	}
	token2, _, err := s.Authenticate(context.Background(), "alice", "old-password", LoginMeta{})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.ChangePassword(context.Background(), id, "old-password", "new-password"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	for _, token := range []string{token1, token2} {
		if _, err := s.VerifySession(context.Background(), token); !errors.Is(err, ErrUnauthenticated) {
			t.Error("pre-change session survived password change")
		}
	}

	if _, _, err := s.Authenticate(context.Background(), "alice", "old-password", LoginMeta{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("old password still accepted")
	}
	if _, _, err := s.Authenticate(context.Background(), "alice", "new-password", LoginMeta{}); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	store := newFakeStore()
	s := newTestService(t, store)
	id := seedUser(t, s, "alice", "old-password")

	err := s.ChangePassword(context.Background(), id, "not-the-password", "new-password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := s.Authenticate(context.Background(), "alice", "old-password", LoginMeta{}); err != nil {
		t.Error("password changed despite wrong current password")
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	s := newTestService(t, newFakeStore())
	seedUser(t, s, "alice", "password-one")

	_, err := s.CreateUser(context.Background(), "alice", "other@example.com", "password-two", "")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate username = %v, want ErrUsernameTaken", err)
	}

	_, err = s.CreateUser(context.Background(), "bob", "alice@example.com", "password-two", "")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate email = %v, want ErrUsernameTaken", err)
	}
}

func TestCreateUserHashesPassword(t *testing.T) {
	store := newFakeStore()
	s := newTestService(t, store)
	id := seedUser(t, s, "alice", "plaintext-secret")

	stored, err := store.GetUserByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.PasswordHash == "plaintext-secret" {
		t.Fatal("password stored in plaintext")
	}
	if !strings.HasPrefix(stored.PasswordHash, "$2") {
		t.Errorf("hash %q is not bcrypt", stored.PasswordHash)
	}
}

func TestSetUserActiveRevokesSessions(t *testing.T) {
	store := newFakeStore()
	s := newTestService(t, store)
	id := seedUser(t, s, "alice", "correct-horse")
	if _, _, err := s.Authenticate(context.Background(), "alice", "correct-horse", LoginMeta{}); err != nil {
		t.Fatal(err)
	}

	if err := s.SetUserActive(context.Background(), id, false); err != nil {
		t.Fatal(err)
	}
	if store.sessionCount() != 0 {
		t.Error("deactivation left sessions live")
	}

	if err := s.SetUserActive(context.Background(), 999, true); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user = %v, want ErrUserNotFound", err)
	}
}

func TestCleanExpiredSessions(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestService(t, store, WithClock(func() time.Time { return now }))
	seedUser(t, s, "alice", "correct-horse")
	if _, _, err := s.Authenticate(context.Background(), "alice", "correct-horse", LoginMeta{}); err != nil {
		t.Fatal(err)
	}

	// Nothing is expired yet.
	n, err := s.CleanExpiredSessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("cleaned %d sessions, want 0", n)
	}

	// Jump past the session timeout.
	now = now.Add(25 * time.Hour)
	n, err = s.CleanExpiredSessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("cleaned %d sessions, want 1", n)
	}

	// Idempotent.
	n, _ = s.CleanExpiredSessions(context.Background())
	if n != 0 {
		t.Errorf("second clean removed %d sessions, want 0", n)
	}
}

func TestTokenHash(t *testing.T) {
	h1 := TokenHash("token-a")
	h2 := TokenHash("token-a")
	h3 := TokenHash("token-b")

	if h1 != h2 {
		t.Error("hash is not deterministic")
	}
	if h1 == h3 {
		t.Error("distinct tokens hashed identically")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}
	if h1 == "token-a" {
		t.Error("hash equals the raw token")
	}
}
