package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nstrokin/authd/internal/logger"
)

// Logging reports each request with its status and latency.
func Logging(logger *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info("http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration", time.Since(start).String(),
			)

			return err
		}
	}
}
