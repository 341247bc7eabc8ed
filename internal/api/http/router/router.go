package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nstrokin/authd/internal/api/http/handler"
	"github.com/nstrokin/authd/internal/api/http/middleware"
	"github.com/nstrokin/authd/internal/logger"
	"github.com/nstrokin/authd/internal/model"
)

// New builds the echo instance with all routes registered.
func New(authService handler.AuthService, signer model.TokenSigner, logger *logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logging(logger))

	h := handler.NewAuth(authService, logger)
	authn := middleware.NewAuthenticate(signer, logger)

	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	g := e.Group("/api/auth")
	g.POST("/register", h.Register)
	g.POST("/token", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/revoke", h.Revoke)

	protected := g.Group("", authn.Middleware)
	protected.GET("/me", h.Me)
	protected.POST("/roles", h.AddRole, middleware.RequireRole("admin"))

	return e
}
