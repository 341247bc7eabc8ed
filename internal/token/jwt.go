package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nstrokin/authd/internal/clock"
	"github.com/nstrokin/authd/internal/model"
)

var _ model.TokenSigner = (*JWT)(nil)

// minSecretBytes keeps HMAC keys at 128 bits or better.
const minSecretBytes = 16

// JWT signs and verifies access tokens with symmetric HMAC-SHA256.
type JWT struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	clock    clock.Clock
}

// NewJWT validates the signing configuration once so a bad key stops the
// process at startup instead of failing every request. durationDays may be
// fractional.
func NewJWT(secret, issuer, audience string, durationDays float64, clk clock.Clock) (*JWT, error) {
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("%w: signing key shorter than %d bytes", model.ErrSigningConfig, minSecretBytes)
	}
	if durationDays <= 0 {
		return nil, fmt.Errorf("%w: non-positive token duration", model.ErrSigningConfig)
	}

	return &JWT{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      time.Duration(durationDays * 24 * float64(time.Hour)),
		clock:    clk,
	}, nil
}

// Issue encodes the claim set into a signed token valid until now+TTL.
// Timestamps are UTC.
func (j *JWT) Issue(claims model.Claims) (string, time.Time, error) {
	now := j.clock.Now().UTC()
	expiresAt := now.Add(j.ttl)

	mapClaims := jwt.MapClaims{}
	for name, value := range claims {
		mapClaims[name] = value
	}
	mapClaims["iss"] = j.issuer
	mapClaims["aud"] = j.audience
	mapClaims["iat"] = jwt.NewNumericDate(now)
	mapClaims["exp"] = jwt.NewNumericDate(expiresAt)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify parses the token and validates signature, issuer, audience and
// expiry. Every rejection cause collapses into ErrInvalidToken so callers
// cannot leak which check failed.
func (j *JWT) Verify(tokenString string) (model.Claims, error) {
	parsed, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
			}
			return j.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return j.clock.Now().UTC() }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, model.ErrInvalidToken
	}

	claims := model.Claims{}
	for name, value := range mapClaims {
		claims[name] = value
	}
	return claims, nil
}
