package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nstrokin/authd/internal/clock"
	"github.com/nstrokin/authd/internal/model"
)

var _ model.RefreshFactory = (*RefreshFactory)(nil)

// Refresh token values carry 32 bytes of CSPRNG output, base64-encoded.
const refreshValueBytes = 32

// RefreshFactory mints opaque refresh tokens.
type RefreshFactory struct {
	ttl   time.Duration
	clock clock.Clock
}

// NewRefreshFactory creates a factory issuing tokens valid for ttlDays
// (fractional allowed).
func NewRefreshFactory(ttlDays float64, clk clock.Clock) *RefreshFactory {
	return &RefreshFactory{
		ttl:   time.Duration(ttlDays * 24 * float64(time.Hour)),
		clock: clk,
	}
}

// Generate returns a fresh unpersisted token for the user.
func (f *RefreshFactory) Generate(userID uuid.UUID) (model.RefreshToken, error) {
	buf := make([]byte, refreshValueBytes)
	if _, err := rand.Read(buf); err != nil {
		return model.RefreshToken{}, fmt.Errorf("failed to read random bytes: %w", err)
	}

	now := f.clock.Now().UTC()
	return model.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Value:     base64.StdEncoding.EncodeToString(buf),
		CreatedAt: now,
		ExpiresAt: now.Add(f.ttl),
	}, nil
}
