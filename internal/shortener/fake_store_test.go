// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package shortener

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rmarins/linktally/internal/database"
	"github.com/rmarins/linktally/internal/models"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	links  map[int64]*models.Link
	clicks []models.Click

	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{links: make(map[int64]*models.Link)}
}

func (f *fakeStore) InsertLink(_ context.Context, link *models.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, l := range f.links {
		if l.ShortCode == link.ShortCode {
			return database.ErrCodeTaken
		}
	}
	f.nextID++
	link.ID = f.nextID
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
	stats := &models.SystemStats{}
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
	return stats, nil
}
