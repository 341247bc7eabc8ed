package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nstrokin/authd/internal/clock"
	"github.com/nstrokin/authd/internal/logger"
	"github.com/nstrokin/authd/internal/model"
	"github.com/nstrokin/authd/internal/rate"
	"github.com/nstrokin/authd/internal/token"
)

// DefaultRole is assigned to every freshly registered user.
const DefaultRole = "user"

// LoginLimiter throttles repeated login attempts per identifier and source
// address. Implementations return rate.ErrTooManyAttempts once the budget
// is spent.
type LoginLimiter interface {
	Enforce(ctx context.Context, identifier, ip string) error
}

// Auth orchestrates registration, login, refresh and revocation against the
// external user and role directories.
type Auth struct {
	users   model.UserDirectory
	roles   model.RoleDirectory
	signer  model.TokenSigner
	tokens  *TokenService
	limiter LoginLimiter
	clock   clock.Clock
	logger  *logger.Logger

	// refreshOnRegister mints a refresh token at registration when set.
	// Off by default: registration issues only an access token.
	refreshOnRegister bool
}

func NewAuth(
	users model.UserDirectory,
	roles model.RoleDirectory,
	signer model.TokenSigner,
	tokens *TokenService,
	limiter LoginLimiter,
	clk clock.Clock,
	logger *logger.Logger,
	refreshOnRegister bool,
) *Auth {
	return &Auth{
		users:             users,
		roles:             roles,
		signer:            signer,
		tokens:            tokens,
		limiter:           limiter,
		clock:             clk,
		logger:            logger,
		refreshOnRegister: refreshOnRegister,
	}
}

// Register creates a user after checking both uniqueness constraints.
// Duplicates are reported before the create is attempted, not after a
// failed constraint write.
func (a *Auth) Register(ctx context.Context, reg model.Registration) (model.AuthResult, error) {
	a.logger.Debug("Auth service: starting registration",
		"username", reg.Username,
		"email", reg.Email)

	if _, err := withRetry(ctx, func(ctx context.Context) (model.User, error) {
		return a.users.FindByEmail(ctx, reg.Email)
	}); err == nil {
		a.logger.Info("Auth service: email already registered", "email", reg.Email)
		return failure(model.ErrDuplicateEmail), model.ErrDuplicateEmail
	} else if !errors.Is(err, model.ErrNotFound) {
		return model.AuthResult{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if _, err := withRetry(ctx, func(ctx context.Context) (model.User, error) {
		return a.users.FindByUsername(ctx, reg.Username)
	}); err == nil {
		a.logger.Info("Auth service: username already taken", "username", reg.Username)
		return failure(model.ErrDuplicateUsername), model.ErrDuplicateUsername
	} else if !errors.Is(err, model.ErrNotFound) {
		return model.AuthResult{}, fmt.Errorf("failed to get user by username: %w", err)
	}

	user, err := withRetry(ctx, func(ctx context.Context) (model.User, error) {
		return a.users.Create(ctx, model.User{
			ID:        uuid.New(),
			Username:  reg.Username,
			Email:     reg.Email,
			FirstName: reg.FirstName,
			LastName:  reg.LastName,
		}, reg.Password)
	})
	if err != nil {
		var createErr *model.CreateError
		if errors.As(err, &createErr) {
			return model.AuthResult{Message: strings.Join(createErr.Reasons, ", ")}, err
		}
		return model.AuthResult{}, fmt.Errorf("failed to create user: %w", err)
	}

	if err := a.roles.AssignRole(ctx, user.ID, DefaultRole); err != nil {
		return model.AuthResult{}, fmt.Errorf("failed to assign default role: %w", err)
	}

	claims := token.BuildClaims(user, nil, []string{DefaultRole})
	access, _, err := a.signer.Issue(claims)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	result := model.AuthResult{
		Authenticated: true,
		Username:      user.Username,
		Email:         user.Email,
		Roles:         []string{DefaultRole},
		AccessToken:   access,
	}

	if a.refreshOnRegister {
		rt, err := a.tokens.Attach(ctx, user.ID)
		if err != nil {
			return model.AuthResult{}, err
		}
		result.RefreshToken = rt.Value
		result.RefreshExpiresAt = rt.ExpiresAt
	}

	a.logger.Info("Auth service: registration completed", "user_id", user.ID)
	return result, nil
}

// Login verifies credentials and returns an access token plus the user's
// refresh token. An active refresh token is reused as is; login never
// consumes a rotation.
func (a *Auth) Login(ctx context.Context, creds model.Credentials, remoteIP string) (model.AuthResult, error) {
	if a.limiter != nil {
		if err := a.limiter.Enforce(ctx, creds.Email, remoteIP); err != nil {
			if errors.Is(err, rate.ErrTooManyAttempts) {
				a.logger.Info("Auth service: login throttled",
					"email", creds.Email,
					"ip", remoteIP)
				return failure(model.ErrInvalidCredentials), model.ErrInvalidCredentials
			}
			// Limiter infrastructure trouble must not lock everyone out.
			a.logger.Warn("Auth service: login limiter unavailable", "error", err.Error())
		}
	}

	user, err := withRetry(ctx, func(ctx context.Context) (model.User, error) {
		return a.users.FindByEmail(ctx, creds.Email)
	})
	if errors.Is(err, model.ErrNotFound) {
		// Same message as a wrong password so accounts cannot be enumerated.
		return failure(model.ErrInvalidCredentials), model.ErrInvalidCredentials
	}
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	ok, err := withRetry(ctx, func(ctx context.Context) (bool, error) {
		return a.users.VerifyPassword(ctx, user, creds.Password)
	})
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		a.logger.Info("Auth service: password verification failed", "user_id", user.ID)
		return failure(model.ErrInvalidCredentials), model.ErrInvalidCredentials
	}

	access, roles, err := a.issueAccess(ctx, user)
	if err != nil {
		return model.AuthResult{}, err
	}

	rt, err := a.tokens.FindActive(ctx, user.ID)
	if errors.Is(err, model.ErrNotFound) {
		rt, err = a.tokens.Attach(ctx, user.ID)
	}
	if err != nil {
		return model.AuthResult{}, err
	}

	a.logger.Info("Auth service: login completed", "user_id", user.ID)

	return model.AuthResult{
		Authenticated:    true,
		Username:         user.Username,
		Email:            user.Email,
		Roles:            roles,
		AccessToken:      access,
		RefreshToken:     rt.Value,
		RefreshExpiresAt: rt.ExpiresAt,
	}, nil
}

// Refresh rotates the presented refresh token and mints a fresh access
// token for its owner. Unknown, revoked and expired values all fail with
// the same ErrInvalidToken.
func (a *Auth) Refresh(ctx context.Context, value string) (model.AuthResult, error) {
	rt, err := a.tokens.LookupOwner(ctx, value)
	if errors.Is(err, model.ErrInvalidToken) {
		return failure(model.ErrInvalidToken), model.ErrInvalidToken
	}
	if err != nil {
		return model.AuthResult{}, err
	}

	if !rt.IsActive(a.clock.Now().UTC()) {
		a.logger.Info("Auth service: refresh with inactive token", "user_id", rt.UserID)
		return failure(model.ErrInvalidToken), model.ErrInvalidToken
	}

	user, err := withRetry(ctx, func(ctx context.Context) (model.User, error) {
		return a.users.FindByID(ctx, rt.UserID)
	})
	if errors.Is(err, model.ErrNotFound) {
		return failure(model.ErrInvalidToken), model.ErrInvalidToken
	}
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	replacement, err := a.tokens.Rotate(ctx, rt)
	if errors.Is(err, model.ErrInvalidToken) {
		return failure(model.ErrInvalidToken), model.ErrInvalidToken
	}
	if err != nil {
		return model.AuthResult{}, err
	}

	access, roles, err := a.issueAccess(ctx, user)
	if err != nil {
		return model.AuthResult{}, err
	}

	a.logger.Info("Auth service: refresh completed", "user_id", user.ID)

	return model.AuthResult{
		Authenticated:    true,
		Username:         user.Username,
		Email:            user.Email,
		Roles:            roles,
		AccessToken:      access,
		RefreshToken:     replacement.Value,
		RefreshExpiresAt: replacement.ExpiresAt,
	}, nil
}

// Revoke retires the presented refresh token. It reports false, without
// error, when the value is unknown or the token is already inactive.
func (a *Auth) Revoke(ctx context.Context, value string) (bool, error) {
	rt, err := a.tokens.LookupOwner(ctx, value)
	if errors.Is(err, model.ErrInvalidToken) {
		a.logger.Info("Auth service: revoke of unknown token value")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return a.tokens.Revoke(ctx, rt)
}

// AddRole assigns a role to a user after checking that both exist and the
// assignment is new.
func (a *Auth) AddRole(ctx context.Context, userID uuid.UUID, roleName string) error {
	user, err := withRetry(ctx, func(ctx context.Context) (model.User, error) {
		return a.users.FindByID(ctx, userID)
	})
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get user by id: %w", err)
	}

	exists, err := a.roles.RoleExists(ctx, roleName)
	if err != nil {
		return fmt.Errorf("failed to check role existence: %w", err)
	}
	if !exists {
		return model.ErrRoleNotFound
	}

	assigned, err := a.roles.IsInRole(ctx, user.ID, roleName)
	if err != nil {
		return fmt.Errorf("failed to check role membership: %w", err)
	}
	if assigned {
		return model.ErrRoleAlreadyAssigned
	}

	if err := a.roles.AssignRole(ctx, user.ID, roleName); err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}

	a.logger.Info("Auth service: role assigned", "user_id", user.ID, "role", roleName)
	return nil
}

func (a *Auth) issueAccess(ctx context.Context, user model.User) (string, []string, error) {
	roles, err := withRetry(ctx, func(ctx context.Context) ([]string, error) {
		return a.users.GetRoles(ctx, user)
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to get roles: %w", err)
	}

	custom, err := withRetry(ctx, func(ctx context.Context) (model.Claims, error) {
		return a.users.GetCustomClaims(ctx, user)
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to get custom claims: %w", err)
	}

	access, _, err := a.signer.Issue(token.BuildClaims(user, custom, roles))
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	return access, roles, nil
}

func failure(err error) model.AuthResult {
	return model.AuthResult{Message: err.Error()}
}
