// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

// Package shortener implements the link lifecycle: creation with code
// generation, redirect resolution with click accounting, owner-scoped
// management, admin CRUD, and expiry cleanup.
package shortener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mileusna/useragent"

	"github.com/rmarins/linktally/internal/cache"
	"github.com/rmarins/linktally/internal/database"
	"github.com/rmarins/linktally/internal/logging"
	"github.com/rmarins/linktally/internal/metrics"
	"github.com/rmarins/linktally/internal/models"
	"github.com/rmarins/linktally/internal/shortcode"
	"github.com/rmarins/linktally/internal/validation"
)

// Sentinel errors for link operations.
var (
	// ErrNotFound means no link matched the code or ID.
	ErrNotFound = errors.New("link not found")

	// ErrCodeTaken means a requested custom code is already assigned.
	ErrCodeTaken = errors.New("short code already in use")

	// ErrGone means the link exists but does not resolve, because it is
	// deactivated or expired.
	ErrGone = errors.New("link is inactive or expired")

	// ErrCapacityExhausted means code generation kept colliding. With a
	// 62^6 space this signals something badly wrong, not a full table.
	ErrCapacityExhausted = errors.New("could not generate a unique short code")
)

// maxGenerationAttempts caps the collision retry loop.
const maxGenerationAttempts = 10

// Store is the persistence surface the service needs. *database.DB
// satisfies it; tests use an in-memory fake.
type Store interface {
	InsertLink(ctx context.Context, link *models.Link) error
	GetLinkByCode(ctx context.Context, code string) (*models.Link, error)
	GetLinkByID(ctx context.Context, id int64) (*models.Link, error)
	CodeExists(ctx context.Context, code string, excludeID int64) (bool, error)
	ListLinksByOwner(ctx context.Context, ownerIP string) ([]models.Link, error)
	ListLinks(ctx context.Context, limit, offset int) ([]models.Link, int64, error)
	UpdateLink(ctx context.Context, link *models.Link) error
	SetLinkActive(ctx context.Context, id int64, active bool) error
	SoftDeleteOwnedLink(ctx context.Context, id int64, ownerIP string) error
	DeleteLink(ctx context.Context, id int64) error
	IncrementClicks(ctx context.Context, id int64) error
	CleanExpiredLinks(ctx context.Context, now time.Time) (linksDeleted, clicksDeleted int64, err error)

	InsertClick(ctx context.Context, click *models.Click) error
	RecentClicks(ctx context.Context, linkID int64, limit int) ([]models.Click, error)
	ClicksByDay(ctx context.Context, linkID int64, days int, now time.Time) ([]models.ClickBucket, error)
	TopReferrers(ctx context.Context, linkID int64, limit int) ([]models.ReferrerCount, error)
	AgentBreakdown(ctx context.Context, linkID int64, column string, limit int) ([]models.AgentCount, error)
	SystemStats(ctx context.Context, now time.Time) (*models.SystemStats, error)
}

// Service orchestrates link operations over a Store.
type Service struct {
	store  Store
	policy validation.URLPolicy
	cache  *cache.Cache
	now    func() time.Time

	statsTTL time.Duration
	listTTL  time.Duration

	// genCode is swappable in tests to force collisions.
	genCode func() (string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCodeGenerator overrides random code generation.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.genCode = gen }
}

// New creates a Service. The cache may be nil, which disables read
// caching entirely.
func New(store Store, policy validation.URLPolicy, c *cache.Cache, statsTTL, listTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		store:    store,
		policy:   policy,
		cache:    c,
		now:      time.Now,
		statsTTL: statsTTL,
		listTTL:  listTTL,
		genCode:  shortcode.Generate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClickContext carries request metadata recorded with each redirect.
type ClickContext struct {
	Referrer  string
	UserAgent string
	IPAddress string
}

// CreateLinkParams are the inputs to CreateLink.
type CreateLinkParams struct {
	URL         string
	CustomCode  string
	Title       string
	Description string

	// ExpiresIn is the link lifetime in hours; zero means no expiry.
	ExpiresIn int

	OwnerIP string
}

// CreateLink validates the target URL against policy, picks a code, and
// persists the link. When no custom code is given a random code is
// generated, retrying on collision up to a fixed cap.
func (s *Service) CreateLink(ctx context.Context, p CreateLinkParams) (*models.Link, error) {
	if err := s.policy.Check(p.URL); err != nil {
		return nil, err
	}

	link := &models.Link{
		OriginalURL: p.URL,
		Title:       p.Title,
		Description: p.Description,
		IsActive:    true,
		OwnerIP:     p.OwnerIP,
	}
	if p.ExpiresIn > 0 {
		exp := s.now().Add(time.Duration(p.ExpiresIn) * time.Hour)
		link.ExpiresAt = &exp
	}

	if p.CustomCode != "" {
		link.ShortCode = p.CustomCode
		link.IsCustom = true
		if err := s.store.InsertLink(ctx, link); err != nil {
			if isCodeTaken(err) {
				return nil, ErrCodeTaken
			}
			return nil, fmt.Errorf("storing link: %w", err)
		}
		metrics.LinksCreated.WithLabelValues("custom").Inc()
		s.invalidateListings()
		return link, nil
	}

	for attempt := 0; attempt < maxGenerationAttempts; attempt++ {
		code, err := s.genCode()
		if err != nil {
			return nil, fmt.Errorf("generating code: %w", err)
		}
		link.ShortCode = code

		err = s.store.InsertLink(ctx, link)
		if err == nil {
			metrics.LinksCreated.WithLabelValues("generated").Inc()
			s.invalidateListings()
			return link, nil
		}
		if !isCodeTaken(err) {
			return nil, fmt.Errorf("storing link: %w", err)
		}
		metrics.CodeGenerationRetries.Inc()
		logging.Ctx(ctx).Warn().Str("code", code).Int("attempt", attempt+1).Msg("short code collision")
	}
	return nil, ErrCapacityExhausted
}

// Resolve looks up a code for redirecting. On success it records the
// click event and bumps the counter concurrently, waiting for both so
// storage errors surface in logs before the handler returns.
// Accounting failures never block the redirect.
func (s *Service) Resolve(ctx context.Context, code string, click ClickContext) (*models.Link, error) {
	link, err := s.store.GetLinkByCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			metrics.RedirectsMissed.WithLabelValues("not_found").Inc()
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("looking up link: %w", err)
	}

	now := s.now()
	if !link.Resolvable(now) {
		reason := "inactive"
		if link.IsActive {
			reason = "expired"
		}
		metrics.RedirectsMissed.WithLabelValues(reason).Inc()
		return nil, ErrGone
	}

	s.recordClick(ctx, link.ID, click)
	metrics.RedirectsServed.Inc()
	link.Clicks++
	return link, nil
}

// recordClick writes the counter increment and the click event in
// parallel and waits for both.
func (s *Service) recordClick(ctx context.Context, linkID int64, click ClickContext) {
	event := &models.Click{
		LinkID:    linkID,
		Referrer:  click.Referrer,
		UserAgent: click.UserAgent,
		IPAddress: click.IPAddress,
	}
	if click.UserAgent != "" {
		ua := useragent.Parse(click.UserAgent)
		event.Browser = ua.Name
		event.Platform = ua.OS
		event.IsBot = ua.Bot
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.store.IncrementClicks(ctx, linkID); err != nil {
			metrics.ClickRecordFailures.Inc()
			logging.Ctx(ctx).Error().Err(err).Int64("link_id", linkID).Msg("click counter update failed")
		}
	}()
	go func() {
		defer wg.Done()
		if err := s.store.InsertClick(ctx, event); err != nil {
			metrics.ClickRecordFailures.Inc()
			logging.Ctx(ctx).Error().Err(err).Int64("link_id", linkID).Msg("click event insert failed")
			return
		}
		metrics.ClicksRecorded.Inc()
	}()
	wg.Wait()
}

// Status returns a link's effective status by code.
func (s *Service) Status(ctx context.Context, code string) (*models.Link, models.LinkStatus, error) {
	link, err := s.store.GetLinkByCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("looking up link: %w", err)
	}
	return link, link.Status(s.now()), nil
}

// LinksByOwner returns every link created from ownerIP, newest first.
func (s *Service) LinksByOwner(ctx context.Context, ownerIP string) ([]models.Link, error) {
	links, err := s.store.ListLinksByOwner(ctx, ownerIP)
	if err != nil {
		return nil, fmt.Errorf("listing owner links: %w", err)
	}
	return links, nil
}

// SoftDelete deactivates a link when it belongs to ownerIP. The record
// and its analytics stay in storage.
func (s *Service) SoftDelete(ctx context.Context, id int64, ownerIP string) error {
	if err := s.store.SoftDeleteOwnedLink(ctx, id, ownerIP); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("deactivating link: %w", err)
	}
	s.invalidateListings()
	return nil
}

// ListAll returns a page of links with the total count, caching each
// page briefly.
func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]models.Link, int64, error) {
	type page struct {
		Links []models.Link
		Total int64
	}
	key := cache.GenerateKey("links.list", map[string]int{"limit": limit, "offset": offset})
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			p := cached.(page)
			return p.Links, p.Total, nil
		}
	}

	links, total, err := s.store.ListLinks(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing links: %w", err)
	}
	if s.cache != nil {
		s.cache.SetWithTTL(key, page{Links: links, Total: total}, s.listTTL)
	}
	return links, total, nil
}

// Update applies an admin edit to a link. Nil request fields are left
// unchanged. Changing the code to one in use returns ErrCodeTaken.
func (s *Service) Update(ctx context.Context, id int64, req *models.UpdateLinkRequest) (*models.Link, error) {
	link, err := s.store.GetLinkByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading link: %w", err)
	}

	if req.OriginalURL != nil {
		if err := s.policy.Check(*req.OriginalURL); err != nil {
			return nil, err
		}
		link.OriginalURL = *req.OriginalURL
	}
	if req.CustomCode != nil && *req.CustomCode != link.ShortCode {
		taken, err := s.store.CodeExists(ctx, *req.CustomCode, link.ID)
		if err != nil {
			return nil, fmt.Errorf("checking code: %w", err)
		}
		if taken {
			return nil, ErrCodeTaken
		}
		link.ShortCode = *req.CustomCode
		link.IsCustom = true
	}
	if req.Title != nil {
		link.Title = *req.Title
	}
	if req.Description != nil {
		link.Description = *req.Description
	}
	if req.ExpiresIn != nil {
		if *req.ExpiresIn == 0 {
			link.ExpiresAt = nil
		} else {
			exp := s.now().Add(time.Duration(*req.ExpiresIn) * time.Hour)
			link.ExpiresAt = &exp
		}
	}
	if req.IsActive != nil {
		link.IsActive = *req.IsActive
	}

	if err := s.store.UpdateLink(ctx, link); err != nil {
		if isCodeTaken(err) {
			return nil, ErrCodeTaken
		}
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating link: %w", err)
	}
	s.invalidateListings()
	return link, nil
}

// ToggleActive flips a link's active flag and returns the fresh record.
func (s *Service) ToggleActive(ctx context.Context, id int64) (*models.Link, error) {
	link, err := s.store.GetLinkByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading link: %w", err)
	}
	if err := s.store.SetLinkActive(ctx, id, !link.IsActive); err != nil {
		return nil, fmt.Errorf("toggling link: %w", err)
	}
	link.IsActive = !link.IsActive
	s.invalidateListings()
	return link, nil
}

// HardDelete removes a link and its click history permanently.
func (s *Service) HardDelete(ctx context.Context, id int64) error {
	if err := s.store.DeleteLink(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting link: %w", err)
	}
	s.invalidateListings()
	return nil
}

// LinkDetails fetches a link by ID for admin views.
func (s *Service) LinkDetails(ctx context.Context, id int64) (*models.Link, error) {
	link, err := s.store.GetLinkByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading link: %w", err)
	}
	return link, nil
}

// Stats assembles the public analytics payload for a code.
func (s *Service) Stats(ctx context.Context, code, baseURL string) (*models.LinkStats, error) {
	link, err := s.store.GetLinkByCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("looking up link: %w", err)
	}

	now := s.now()
	stats := &models.LinkStats{
		Link:        models.NewLinkResponse(link, baseURL, now),
		TotalClicks: link.Clicks,
	}

	if stats.ClicksByDay, err = s.store.ClicksByDay(ctx, link.ID, 30, now); err != nil {
		return nil, fmt.Errorf("daily clicks: %w", err)
	}
	if stats.TopReferrers, err = s.store.TopReferrers(ctx, link.ID, 10); err != nil {
		return nil, fmt.Errorf("top referrers: %w", err)
	}
	if stats.Browsers, err = s.store.AgentBreakdown(ctx, link.ID, "browser", 10); err != nil {
		return nil, fmt.Errorf("browser breakdown: %w", err)
	}
	if stats.Platforms, err = s.store.AgentBreakdown(ctx, link.ID, "platform", 10); err != nil {
		return nil, fmt.Errorf("platform breakdown: %w", err)
	}
	if stats.RecentClicks, err = s.store.RecentClicks(ctx, link.ID, 20); err != nil {
		return nil, fmt.Errorf("recent clicks: %w", err)
	}
	return stats, nil
}

// SystemStats returns the cached admin dashboard aggregates.
func (s *Service) SystemStats(ctx context.Context) (*models.SystemStats, error) {
	const key = "stats:system"
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return cached.(*models.SystemStats), nil
		}
	}

	stats, err := s.store.SystemStats(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("computing system stats: %w", err)
	}
	if s.cache != nil {
		s.cache.SetWithTTL(key, stats, s.statsTTL)
	}
	return stats, nil
}

// CleanExpired removes every expired link with its clicks. Idempotent;
// a second run deletes nothing.
func (s *Service) CleanExpired(ctx context.Context) (*models.CleanupResult, error) {
	links, clicks, err := s.store.CleanExpiredLinks(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("cleaning expired links: %w", err)
	}
	if links > 0 || clicks > 0 {
		metrics.SweepDeletions.WithLabelValues("links").Add(float64(links))
		metrics.SweepDeletions.WithLabelValues("clicks").Add(float64(clicks))
		s.invalidateListings()
		logging.Ctx(ctx).Info().Int64("links", links).Int64("clicks", clicks).Msg("expired links removed")
	}
	return &models.CleanupResult{LinksDeleted: links, ClicksDeleted: clicks}, nil
}

// invalidateListings drops cached pages and aggregates after any write.
func (s *Service) invalidateListings() {
	if s.cache == nil {
		return
	}
	s.cache.DeletePrefix("links.list:")
	s.cache.Delete("stats:system")
}

// isNotFound matches both the service sentinel and the storage layer's.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, database.ErrNotFound)
}

// isCodeTaken matches code collision errors from any store.
func isCodeTaken(err error) bool {
	return errors.Is(err, ErrCodeTaken) || errors.Is(err, database.ErrCodeTaken)
}
