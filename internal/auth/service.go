// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rmarins/linktally/internal/database"
	"github.com/rmarins/linktally/internal/logging"
	"github.com/rmarins/linktally/internal/metrics"
	"github.com/rmarins/linktally/internal/models"
)

// Sentinel errors for authentication operations.
var (
	// ErrInvalidCredentials covers unknown usernames, wrong passwords,
	// and deactivated accounts alike, so responses do not reveal which
	// part failed.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUnauthenticated means the presented token did not map to a
	// live session with an active user.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrUsernameTaken mirrors the storage sentinel for the API layer.
	ErrUsernameTaken = errors.New("username or email already in use")

	// ErrUserNotFound is returned for operations on unknown user IDs.
	ErrUserNotFound = errors.New("user not found")
)

// Store is the persistence surface the auth service needs.
// *database.DB satisfies it.
type Store interface {
	GetUserByLogin(ctx context.Context, login string) (*models.AdminUser, error)
	GetUserByID(ctx context.Context, id int64) (*models.AdminUser, error)
	InsertUser(ctx context.Context, user *models.AdminUser) error
	ListUsers(ctx context.Context) ([]models.AdminUser, error)
	SetUserActive(ctx context.Context, id int64, active bool) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	TouchLastLogin(ctx context.Context, id int64, when time.Time) error

	InsertSession(ctx context.Context, session *models.Session) error
	GetLiveSession(ctx context.Context, tokenHash string, now time.Time) (*models.Session, *models.AdminUser, error)
	DeleteSessionByHash(ctx context.Context, tokenHash string) error
	DeleteSessionsForUser(ctx context.Context, userID int64) (int64, error)
	CleanExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	CountLiveSessions(ctx context.Context, now time.Time) (int64, error)
}

// Service implements admin authentication over a Store.
type Service struct {
	store  Store
	hasher *PasswordHasher
	tokens *JWTManager
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the auth service.
func NewService(store Store, hasher *PasswordHasher, tokens *JWTManager, opts ...Option) *Service {
	s := &Service{store: store, hasher: hasher, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginMeta carries request metadata recorded with each session.
type LoginMeta struct {
	IPAddress string
	UserAgent string
}

// Authenticate verifies credentials and, on success, issues a token and
// records its session. The login accepts either the username or the
// account's email. Failures are uniform ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, login, password string, meta LoginMeta) (string, *models.AdminUser, error) {
	user, err := s.store.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Burn a comparison so unknown accounts cost the same as
			// wrong passwords.
			s.hasher.Verify("$2a$12$C6UzMDM.H6dfI/f/IKcEeO7bCtbVDQJa7orBXMjPcVLizX8Sg3Du2", password)
			metrics.RecordLogin(false)
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("loading user: %w", err)
	}

	if !user.IsActive || !s.hasher.Verify(user.PasswordHash, password) {
		metrics.RecordLogin(false)
		logging.Ctx(ctx).Warn().Str("login", login).Msg("failed login attempt")
		return "", nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Username, user.Email)
	if err != nil {
		return "", nil, fmt.Errorf("issuing token: %w", err)
	}

	session := &models.Session{
		UserID:    user.ID,
		TokenHash: TokenHash(token),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		ExpiresAt: expiresAt,
	}
	if err := s.store.InsertSession(ctx, session); err != nil {
		return "", nil, fmt.Errorf("recording session: %w", err)
	}

	now := s.now()
	if err := s.store.TouchLastLogin(ctx, user.ID, now); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("recording login time failed")
	}
	user.LastLoginAt = &now

	metrics.RecordLogin(true)
	s.refreshSessionGauge(ctx)
	logging.Ctx(ctx).Info().Str("username", user.Username).Msg("admin logged in")
	return token, user, nil
}

// VerifySession authenticates a token: the JWT must verify and its
// session row must still be live with an active user. Either failing
// returns ErrUnauthenticated.
func (s *Service) VerifySession(ctx context.Context, token string) (*models.AdminUser, error) {
	if _, err := s.tokens.ValidateToken(token); err != nil {
		return nil, ErrUnauthenticated
	}

	_, user, err := s.store.GetLiveSession(ctx, TokenHash(token), s.now())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return user, nil
}

// Logout revokes the token's session. Idempotent: revoking an unknown
// or already revoked token succeeds.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.store.DeleteSessionByHash(ctx, TokenHash(token)); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	s.refreshSessionGauge(ctx)
	return nil
}

// ChangePassword verifies the current password, stores the new hash,
// and revokes every session of the user, including the one making the
// request.
func (s *Service) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("loading user: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, currentPassword) {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("storing new password: %w", err)
	}

	revoked, err := s.store.DeleteSessionsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("revoking sessions: %w", err)
	}
	s.refreshSessionGauge(ctx)
	logging.Ctx(ctx).Info().Int64("user_id", userID).Int64("sessions_revoked", revoked).Msg("password changed")
	return nil
}

// CreateUser provisions a new admin account.
func (s *Service) CreateUser(ctx context.Context, username, email, password, fullName string) (*models.AdminUser, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.AdminUser{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.store.InsertUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("storing user: %w", err)
	}
	logging.Ctx(ctx).Info().Str("username", username).Msg("admin user created")
	return user, nil
}

// ListUsers returns all admin accounts.
func (s *Service) ListUsers(ctx context.Context) ([]models.AdminUser, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// GetUser loads a single admin account by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (*models.AdminUser, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}

// ToggleUserActive flips an account's active flag and returns the fresh
// record. Deactivation revokes the account's sessions.
func (s *Service) ToggleUserActive(ctx context.Context, id int64) (*models.AdminUser, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.SetUserActive(ctx, id, !user.IsActive); err != nil {
		return nil, err
	}
	user.IsActive = !user.IsActive
	return user, nil
}

// SetUserActive enables or disables an account. Deactivation also
// revokes the account's sessions so access ends immediately.
func (s *Service) SetUserActive(ctx context.Context, id int64, active bool) error {
	if err := s.store.SetUserActive(ctx, id, active); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("toggling user: %w", err)
	}
	if !active {
		if _, err := s.store.DeleteSessionsForUser(ctx, id); err != nil {
			return fmt.Errorf("revoking sessions: %w", err)
		}
		s.refreshSessionGauge(ctx)
	}
	return nil
}

// CleanExpiredSessions removes sessions whose expiry has passed and
// returns how many were deleted.
func (s *Service) CleanExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.store.CleanExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("cleaning sessions: %w", err)
	}
	if n > 0 {
		metrics.SweepDeletions.WithLabelValues("sessions").Add(float64(n))
		logging.Ctx(ctx).Info().Int64("sessions", n).Msg("expired sessions removed")
	}
	s.refreshSessionGauge(ctx)
	return n, nil
}

func (s *Service) refreshSessionGauge(ctx context.Context) {
	if n, err := s.store.CountLiveSessions(ctx, s.now()); err == nil {
		metrics.ActiveSessions.Set(float64(n))
	}
}
