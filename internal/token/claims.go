package token

import (
	"github.com/google/uuid"

	"github.com/nstrokin/authd/internal/model"
)

// BuildClaims assembles the claim set for an access token: subject, a fresh
// unguessable jti, email, user id, the role list, and the directory's custom
// claims. On a key collision the identity claims win and the custom claim is
// skipped; the union itself never fails. Inputs are not mutated.
func BuildClaims(user model.User, custom model.Claims, roles []string) model.Claims {
	claims := model.Claims{
		"sub":   user.Username,
		"jti":   uuid.NewString(),
		"email": user.Email,
		"uid":   user.ID.String(),
	}

	if len(roles) > 0 {
		rs := make([]string, len(roles))
		copy(rs, roles)
		claims["roles"] = rs
	}

	for name, value := range custom {
		if _, taken := claims[name]; taken {
			continue
		}
		claims[name] = value
	}

	return claims
}
