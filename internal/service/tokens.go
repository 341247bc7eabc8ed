package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nstrokin/authd/internal/clock"
	"github.com/nstrokin/authd/internal/logger"
	"github.com/nstrokin/authd/internal/model"
)

// TokenService owns the refresh-token lifecycle. A token moves from active
// to rotated, revoked or expired and never back; the store's conditional
// revoke decides races between concurrent rotations.
type TokenService struct {
	factory model.RefreshFactory
	store   model.RefreshTokenStore
	clock   clock.Clock
	logger  *logger.Logger
}

func NewTokenService(factory model.RefreshFactory, store model.RefreshTokenStore, clk clock.Clock, logger *logger.Logger) *TokenService {
	return &TokenService{
		factory: factory,
		store:   store,
		clock:   clk,
		logger:  logger,
	}
}

// FindActive returns the user's active refresh token or ErrNotFound. More
// than one active token means rotation was bypassed somewhere; the earliest
// created wins and the anomaly is logged.
func (s *TokenService) FindActive(ctx context.Context, userID uuid.UUID) (model.RefreshToken, error) {
	tokens, err := s.store.GetActiveByUser(ctx, userID, s.clock.Now().UTC())
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("failed to list active refresh tokens: %w", err)
	}

	if len(tokens) == 0 {
		return model.RefreshToken{}, model.ErrNotFound
	}
	if len(tokens) > 1 {
		s.logger.Error("multiple active refresh tokens for user",
			"user_id", userID,
			"count", len(tokens))
	}

	return tokens[0], nil
}

// Attach mints a new refresh token for the user and persists it.
func (s *TokenService) Attach(ctx context.Context, userID uuid.UUID) (model.RefreshToken, error) {
	rt, err := s.factory.Generate(userID)
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.store.Create(ctx, rt); err != nil {
		return model.RefreshToken{}, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return rt, nil
}

// LookupOwner resolves a presented refresh value to its stored record.
// Unknown values surface as ErrInvalidToken; the caller must not learn
// whether the value ever existed.
func (s *TokenService) LookupOwner(ctx context.Context, value string) (model.RefreshToken, error) {
	rt, err := s.store.GetByValue(ctx, value)
	if errors.Is(err, model.ErrNotFound) {
		return model.RefreshToken{}, model.ErrInvalidToken
	}
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	return rt, nil
}

// Rotate retires the presented token and returns its replacement. Callers
// must have checked IsActive; an inactive argument is a caller bug and is
// logged loudly. When two rotations race, the store lets exactly one revoke
// through and the loser gets ErrInvalidToken.
func (s *TokenService) Rotate(ctx context.Context, old model.RefreshToken) (model.RefreshToken, error) {
	now := s.clock.Now().UTC()
	if !old.IsActive(now) {
		s.logger.Error("rotate called with inactive refresh token",
			"user_id", old.UserID,
			"expires_at", old.ExpiresAt)
		return model.RefreshToken{}, model.ErrInvalidToken
	}

	replacement, err := s.factory.Generate(old.UserID)
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("failed to generate replacement token: %w", err)
	}

	revoked, err := s.store.Revoke(ctx, old.Value, &replacement.Value, now)
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("failed to revoke rotated token: %w", err)
	}
	if !revoked {
		// A concurrent refresh rotated it first.
		return model.RefreshToken{}, model.ErrInvalidToken
	}

	if err := s.store.Create(ctx, replacement); err != nil {
		return model.RefreshToken{}, fmt.Errorf("failed to persist replacement token: %w", err)
	}

	return replacement, nil
}

// Revoke retires a token without replacement. It returns false when the
// token is already out of the active state; the two inactive causes are
// logged distinctly but look identical to the caller.
func (s *TokenService) Revoke(ctx context.Context, rt model.RefreshToken) (bool, error) {
	now := s.clock.Now().UTC()

	if rt.RevokedAt != nil {
		s.logger.Info("revoke skipped, token already revoked",
			"user_id", rt.UserID,
			"revoked_at", rt.RevokedAt)
		return false, nil
	}
	if !now.Before(rt.ExpiresAt) {
		s.logger.Info("revoke skipped, token expired",
			"user_id", rt.UserID,
			"expired_at", rt.ExpiresAt)
		return false, nil
	}

	revoked, err := s.store.Revoke(ctx, rt.Value, nil, now)
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return revoked, nil
}

// RevokeAllForUser retires every active token the user holds.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.RevokeAllByUser(ctx, userID, s.clock.Now().UTC()); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens by user: %w", err)
	}
	return nil
}
