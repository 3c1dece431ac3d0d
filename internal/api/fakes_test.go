// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rmarins/linktally/internal/database"
	"github.com/rmarins/linktally/internal/models"
)

// fakeStore is an in-memory store backing both the link and auth
// services in handler tests.
type fakeStore struct {
	mu         sync.Mutex
	nextLinkID int64
	nextUserID int64
	nextSessID int64
	links      map[int64]*models.Link
	clicks     []models.Click
	users      map[int64]*models.AdminUser
	sessions   map[int64]*models.Session
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		links:    make(map[int64]*models.Link),
		users:    make(map[int64]*models.AdminUser),
		sessions: make(map[int64]*models.Session),
	}
}

func (f *fakeStore) InsertLink(_ context.Context, link *models.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if l.ShortCode == link.ShortCode {
			return database.ErrCodeTaken
		}
	}
	f.nextLinkID++
	link.ID = f.nextLinkID
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	cp := *link
	f.links[link.ID] = &cp
	return nil
}

func (f *fakeStore) GetLinkByCode(_ context.Context, code string) (*models.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if l.ShortCode == code {
			cp := *l
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) GetLinkByID(_ context.Context, id int64) (*models.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeStore) CodeExists(_ context.Context, code string, excludeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if l.ShortCode == code && l.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListLinksByOwner(_ context.Context, ownerIP string) ([]models.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Link
	for _, l := range f.links {
		if l.OwnerIP == ownerIP {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) ListLinks(_ context.Context, limit, offset int) ([]models.Link, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Link
	for _, l := range f.links {
		all = append(all, *l)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeStore) UpdateLink(_ context.Context, link *models.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.links[link.ID]; !ok {
		return database.ErrNotFound
	}
	for _, l := range f.links {
		if l.ShortCode == link.ShortCode && l.ID != link.ID {
			return database.ErrCodeTaken
		}
	}
	cp := *link
	f.links[link.ID] = &cp
	return nil
}

func (f *fakeStore) SetLinkActive(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[id]
	if !ok {
		return database.ErrNotFound
	}
	l.IsActive = active
	return nil
}

func (f *fakeStore) SoftDeleteOwnedLink(_ context.Context, id int64, ownerIP string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[id]
	if !ok || l.OwnerIP != ownerIP {
		return database.ErrNotFound
	}
	l.IsActive = false
	return nil
}

func (f *fakeStore) DeleteLink(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.links[id]; !ok {
		return database.ErrNotFound
	}
	delete(f.links, id)
	kept := f.clicks[:0]
	for _, c := range f.clicks {
		if c.LinkID != id {
			kept = append(kept, c)
		}
	}
	f.clicks = kept
	return nil
}

func (f *fakeStore) IncrementClicks(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.links[id]; ok {
		l.Clicks++
	}
	return nil
}

func (f *fakeStore) CleanExpiredLinks(_ context.Context, now time.Time) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var linksDeleted, clicksDeleted int64
	for id, l := range f.links {
		if l.ExpiresAt != nil && l.ExpiresAt.Before(now) {
			delete(f.links, id)
			linksDeleted++
			kept := f.clicks[:0]
			for _, c := range f.clicks {
				if c.LinkID == id {
					clicksDeleted++
				} else {
					kept = append(kept, c)
				}
			}
			f.clicks = kept
		}
	}
	return linksDeleted, clicksDeleted, nil
}

func (f *fakeStore) InsertClick(_ context.Context, click *models.Click) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	click.ID = int64(len(f.clicks) + 1)
	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now()
	}
	f.clicks = append(f.clicks, *click)
	return nil
}

func (f *fakeStore) RecentClicks(_ context.Context, linkID int64, limit int) ([]models.Click, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Click
	for i := len(f.clicks) - 1; i >= 0 && len(out) < limit; i-- {
		if f.clicks[i].LinkID == linkID {
			out = append(out, f.clicks[i])
		}
	}
	return out, nil
}

func (f *fakeStore) ClicksByDay(_ context.Context, linkID int64, days int, now time.Time) ([]models.ClickBucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := now.AddDate(0, 0, -days)
	byDay := make(map[string]int64)
	for _, c := range f.clicks {
		if c.LinkID == linkID && !c.ClickedAt.Before(cutoff) {
			byDay[c.ClickedAt.Format("2006-01-02")]++
		}
	}
	var out []models.ClickBucket
	for day, n := range byDay {
		out = append(out, models.ClickBucket{Day: day, Clicks: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (f *fakeStore) TopReferrers(_ context.Context, linkID int64, limit int) ([]models.ReferrerCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int64)
	for _, c := range f.clicks {
		if c.LinkID == linkID {
			ref := c.Referrer
			if ref == "" {
				ref = "direct"
			}
			counts[ref]++
		}
	}
	var out []models.ReferrerCount
	for ref, n := range counts {
		out = append(out, models.ReferrerCount{Referrer: ref, Clicks: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Clicks > out[j].Clicks })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) AgentBreakdown(_ context.Context, linkID int64, column string, limit int) ([]models.AgentCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int64)
	for _, c := range f.clicks {
		if c.LinkID != linkID {
			continue
		}
		name := c.Browser
		if column == "platform" {
			name = c.Platform
		}
		if name == "" {
			name = "unknown"
		}
		counts[name]++
	}
	var out []models.AgentCount
	for name, n := range counts {
		out = append(out, models.AgentCount{Name: name, Clicks: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Clicks > out[j].Clicks })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) SystemStats(_ context.Context, now time.Time) (*models.SystemStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &models.SystemStats{TotalUsers: int64(len(f.users))}
	for _, l := range f.links {
		stats.TotalLinks++
		stats.TotalClicks += l.Clicks
		if l.Resolvable(now) {
			stats.ActiveLinks++
		}
		if l.Expired(now) {
			stats.ExpiredLinks++
		}
	}
	for _, s := range f.sessions {
		if s.ExpiresAt.After(now) {
			stats.ActiveSessions++
		}
	}
	return stats, nil
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
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
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

// expireLink backdates a link's expiry for cleanup tests.
func (f *fakeStore) expireLink(id int64, past time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.links[id]; ok {
		l.ExpiresAt = &past
	}
}

// expireSessions backdates every session's expiry for cleanup tests.
func (f *fakeStore) expireSessions(past time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		s.ExpiresAt = past
	}
}

// allSessions snapshots the stored sessions, oldest first.
func (f *fakeStore) allSessions() []models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
