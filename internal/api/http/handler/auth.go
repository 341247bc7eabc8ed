package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nstrokin/authd/internal/logger"
	"github.com/nstrokin/authd/internal/model"
)

// refreshCookieName carries the refresh token value between the browser
// and the refresh/revoke endpoints.
const refreshCookieName = "refresh_token"

// AuthService defines the authentication operations exposed over HTTP.
type AuthService interface {
	Register(ctx context.Context, reg model.Registration) (model.AuthResult, error)
	Login(ctx context.Context, creds model.Credentials, remoteIP string) (model.AuthResult, error)
	Refresh(ctx context.Context, value string) (model.AuthResult, error)
	Revoke(ctx context.Context, value string) (bool, error)
	AddRole(ctx context.Context, userID uuid.UUID, roleName string) error
}

// Auth handles the HTTP endpoints for authentication.
type Auth struct {
	authService AuthService
	logger      *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, logger *logger.Logger) *Auth {
	return &Auth{
		authService: authService,
		logger:      logger,
	}
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type addRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type authResponse struct {
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles,omitempty"`
	AccessToken string   `json:"access_token"`
}

// Register creates a new user and returns an access token.
func (h *Auth) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username, email and password required"})
	}

	result, err := h.authService.Register(c.Request().Context(), model.Registration{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.logger.Info("Auth handler: registration rejected", "error", err.Error())
		return c.JSON(statusFromError(err), echo.Map{"error": failureMessage(result, err)})
	}

	if result.RefreshToken != "" {
		setRefreshCookie(c, result.RefreshToken, result.RefreshExpiresAt)
	}

	return c.JSON(http.StatusCreated, authResponse{
		Username:    result.Username,
		Email:       result.Email,
		Roles:       result.Roles,
		AccessToken: result.AccessToken,
	})
}

// Login verifies credentials and returns an access token; the refresh token
// travels in an HttpOnly cookie.
func (h *Auth) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password required"})
	}

	result, err := h.authService.Login(c.Request().Context(), model.Credentials{
		Email:    req.Email,
		Password: req.Password,
	}, c.RealIP())
	if err != nil {
		return c.JSON(statusFromError(err), echo.Map{"error": failureMessage(result, err)})
	}

	setRefreshCookie(c, result.RefreshToken, result.RefreshExpiresAt)

	return c.JSON(http.StatusOK, authResponse{
		Username:    result.Username,
		Email:       result.Email,
		Roles:       result.Roles,
		AccessToken: result.AccessToken,
	})
}

// Refresh rotates the presented refresh token and returns a new pair.
func (h *Auth) Refresh(c echo.Context) error {
	value := h.refreshValue(c)
	if value == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh token required"})
	}

	result, err := h.authService.Refresh(c.Request().Context(), value)
	if err != nil {
		return c.JSON(statusFromError(err), echo.Map{"error": failureMessage(result, err)})
	}

	setRefreshCookie(c, result.RefreshToken, result.RefreshExpiresAt)

	return c.JSON(http.StatusOK, authResponse{
		Username:    result.Username,
		Email:       result.Email,
		Roles:       result.Roles,
		AccessToken: result.AccessToken,
	})
}

// Revoke retires the presented refresh token.
func (h *Auth) Revoke(c echo.Context) error {
	value := h.refreshValue(c)
	if value == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh token required"})
	}

	ok, err := h.authService.Revoke(c.Request().Context(), value)
	if err != nil {
		h.logger.Error("Auth handler: revoke failed", "error", err.Error())
		return c.JSON(statusFromError(err), echo.Map{"error": "revoke failed"})
	}
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is not active"})
	}

	clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// AddRole assigns a role to a user. Admin only; the router gates it.
func (h *Auth) AddRole(c echo.Context) error {
	var req addRoleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil || strings.TrimSpace(req.Role) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and role required"})
	}

	if err := h.authService.AddRole(c.Request().Context(), userID, req.Role); err != nil {
		return c.JSON(statusFromError(err), echo.Map{"error": err.Error()})
	}

	return c.NoContent(http.StatusNoContent)
}

// Me echoes the identity established by the bearer middleware.
func (h *Auth) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":  c.Get("user_id"),
		"username": c.Get("username"),
		"roles":    c.Get("roles"),
	})
}

// refreshValue reads the token from the body first and falls back to the
// cookie so both API clients and browsers work.
func (h *Auth) refreshValue(c echo.Context) string {
	var req refreshRequest
	_ = c.Bind(&req)
	if v := strings.TrimSpace(req.RefreshToken); v != "" {
		return v
	}

	cookie, err := c.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// setRefreshCookie stores the refresh value in an HttpOnly cookie expiring
// with the token. The Expires header uses server-local time; signing and
// comparisons stay in UTC.
func setRefreshCookie(c echo.Context, value string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Expires:  expiresAt.Local(),
		Path:     "/api/auth",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		MaxAge:   -1,
		Path:     "/api/auth",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
