// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rmarins/linktally/internal/database"
	"github.com/rmarins/linktally/internal/models"
)

// fakeStore is an in-memory Store for auth service tests.
type fakeStore struct {
	mu         sync.Mutex
	nextUserID int64
	nextSessID int64
	users      map[int64]*models.AdminUser
	sessions   map[int64]*models.Session
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[int64]*models.AdminUser),
		sessions: make(map[int64]*models.Session),
	}
}

func (f *fakeStore) GetUserByLogin(_ context.Context, login string) (*models.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == login || u.Email == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*models.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) InsertUser(_ context.Context, user *models.AdminUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return database.ErrUsernameTaken
		}
	}
	f.nextUserID++
	user.ID = f.nextUserID
	user.CreatedAt = time.Now()
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeStore) ListUsers(_ context.Context) ([]models.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AdminUser
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeStore) SetUserActive(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.IsActive = active
	return nil
}

func (f *fakeStore) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeStore) TouchLastLogin(_ context.Context, id int64, when time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.LastLoginAt = &when
	}
	return nil
}

func (f *fakeStore) InsertSession(_ context.Context, session *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSessID++
	session.ID = f.nextSessID
	session.CreatedAt = time.Now()
	cp := *session
	f.sessions[session.ID] = &cp
	return nil
}

func (f *fakeStore) GetLiveSession(_ context.Context, tokenHash string, now time.Time) (*models.Session, *models.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.TokenHash != tokenHash || !s.ExpiresAt.After(now) {
			continue
		}
		u, ok := f.users[s.UserID]
		if !ok || !u.IsActive {
			return nil, nil, database.ErrNotFound
		}
		sc, uc := *s, *u
		return &sc, &uc, nil
	}
	return nil, nil, database.ErrNotFound
}

func (f *fakeStore) DeleteSessionByHash(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.TokenHash == tokenHash {
			delete(f.sessions, id)
		}
	}
	return nil
}

func (f *fakeStore) DeleteSessionsForUser(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CleanExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sessions {
		if !s.ExpiresAt.After(now) {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountLiveSessions(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.sessions {
		if s.ExpiresAt.After(now) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}
