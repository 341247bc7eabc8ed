package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenStore persists refresh tokens. Revoke must be a conditional
// update on revoked_at so that concurrent rotations of the same value
// cannot both succeed.
type RefreshTokenStore interface {
	Create(ctx context.Context, token RefreshToken) error
	GetByValue(ctx context.Context, value string) (RefreshToken, error)
	GetActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]RefreshToken, error)
	Revoke(ctx context.Context, value string, replacedBy *string, now time.Time) (bool, error)
	RevokeAllByUser(ctx context.Context, userID uuid.UUID, now time.Time) error
}

// RefreshToken is a server-side record of an opaque refresh credential.
// ReplacedBy, once set, is never cleared: rotation history is append-only.
type RefreshToken struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Value      string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
	UpdatedAt  time.Time
}

// IsActive reports whether the token is neither revoked nor expired at now.
func (t RefreshToken) IsActive(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
