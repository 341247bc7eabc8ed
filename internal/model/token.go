package model

import (
	"time"

	"github.com/google/uuid"
)

// Claims is an unordered set of assertions embedded in an access token.
type Claims map[string]any

// TokenSigner encodes claim sets into signed, time-bounded access tokens
// and verifies inbound ones.
type TokenSigner interface {
	Issue(claims Claims) (token string, expiresAt time.Time, err error)
	Verify(token string) (Claims, error)
}

// RefreshFactory mints opaque refresh token values with expiry metadata.
type RefreshFactory interface {
	Generate(userID uuid.UUID) (RefreshToken, error)
}
