package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nstrokin/authd/internal/logger"
	"github.com/nstrokin/authd/internal/model"
)

// Authenticate validates bearer tokens and injects the caller's identity
// into the request context.
type Authenticate struct {
	signer model.TokenSigner
	logger *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(signer model.TokenSigner, logger *logger.Logger) *Authenticate {
	return &Authenticate{signer: signer, logger: logger}
}

// Middleware parses the Authorization header, verifies the access token and
// stores user_id, username and roles on the echo context.
func (m *Authenticate) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
		}

		claims, err := m.signer.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			m.logger.Debug("authenticate middleware: token rejected", "error", err.Error())
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}

		c.Set("user_id", stringClaim(claims, "uid"))
		c.Set("username", stringClaim(claims, "sub"))
		c.Set("roles", rolesClaim(claims))

		return next(c)
	}
}

// RequireRole gates a route on a role claim. Must run after Middleware.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roles, _ := c.Get("roles").([]string)
			for _, r := range roles {
				if r == role {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
}

func stringClaim(claims model.Claims, name string) string {
	v, _ := claims[name].(string)
	return v
}

// rolesClaim tolerates both []string (freshly built claims) and []any
// (claims decoded from JSON).
func rolesClaim(claims model.Claims) []string {
	switch v := claims["roles"].(type) {
	case []string:
		return v
	case []any:
		roles := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				roles = append(roles, s)
			}
		}
		return roles
	default:
		return nil
	}
}
