package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nstrokin/authd/internal/clock"
	"github.com/nstrokin/authd/internal/logger"
	"github.com/nstrokin/authd/internal/mocks"
	"github.com/nstrokin/authd/internal/model"
	"github.com/nstrokin/authd/internal/rate"
)

type authFixture struct {
	users   *mocks.UserDirectory
	roles   *mocks.RoleDirectory
	signer  *mocks.TokenSigner
	store   *mocks.RefreshTokenStore
	factory *mocks.RefreshFactory
	limiter *mocks.LoginLimiter
	clk     *clock.Mock
}

func newAuthFixture() *authFixture {
	return &authFixture{
		users:   &mocks.UserDirectory{},
		roles:   &mocks.RoleDirectory{},
		signer:  &mocks.TokenSigner{},
		store:   &mocks.RefreshTokenStore{},
		factory: &mocks.RefreshFactory{},
		limiter: &mocks.LoginLimiter{},
		clk:     clock.NewMock(testStart),
	}
}

func (f *authFixture) build(refreshOnRegister bool) *Auth {
	tokens := NewTokenService(f.factory, f.store, f.clk, logger.New(0))
	return NewAuth(f.users, f.roles, f.signer, tokens, f.limiter, f.clk, logger.New(0), refreshOnRegister)
}

func TestAuth_Register(t *testing.T) {
	ctx := context.Background()

	reg := model.Registration{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "s3cret",
	}

	t.Run("success without refresh token", func(t *testing.T) {
		f := newAuthFixture()
		created := model.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}

		f.users.On("FindByEmail", ctx, reg.Email).Return(model.User{}, model.ErrNotFound).Once()
		f.users.On("FindByUsername", ctx, reg.Username).Return(model.User{}, model.ErrNotFound).Once()
		f.users.On("Create", ctx, mock.AnythingOfType("model.User"), reg.Password).Return(created, nil).Once()
		f.roles.On("AssignRole", ctx, created.ID, DefaultRole).Return(nil).Once()
		f.signer.On("Issue", mock.AnythingOfType("model.Claims")).Return("access", testStart.Add(24*time.Hour), nil).Once()

		result, err := f.build(false).Register(ctx, reg)
		require.NoError(t, err)
		assert.True(t, result.Authenticated)
		assert.Equal(t, "alice", result.Username)
		assert.Equal(t, []string{DefaultRole}, result.Roles)
		assert.Equal(t, "access", result.AccessToken)
		assert.Empty(t, result.RefreshToken)
		f.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("success with refresh token enabled", func(t *testing.T) {
		f := newAuthFixture()
		created := model.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}
		rt := activeToken(created.ID, "fresh", f.clk.Now())

		f.users.On("FindByEmail", ctx, reg.Email).Return(model.User{}, model.ErrNotFound).Once()
		f.users.On("FindByUsername", ctx, reg.Username).Return(model.User{}, model.ErrNotFound).Once()
		f.users.On("Create", ctx, mock.AnythingOfType("model.User"), reg.Password).Return(created, nil).Once()
		f.roles.On("AssignRole", ctx, created.ID, DefaultRole).Return(nil).Once()
		f.signer.On("Issue", mock.AnythingOfType("model.Claims")).Return("access", testStart.Add(24*time.Hour), nil).Once()
		f.factory.On("Generate", created.ID).Return(rt, nil).Once()
		f.store.On("Create", ctx, rt).Return(nil).Once()

		result, err := f.build(true).Register(ctx, reg)
		require.NoError(t, err)
		assert.Equal(t, "fresh", result.RefreshToken)
		assert.Equal(t, rt.ExpiresAt, result.RefreshExpiresAt)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByEmail", ctx, reg.Email).Return(model.User{ID: uuid.New()}, nil).Once()

		result, err := f.build(false).Register(ctx, reg)
		require.ErrorIs(t, err, model.ErrDuplicateEmail)
		assert.False(t, result.Authenticated)
		assert.NotEmpty(t, result.Message)
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate username", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByEmail", ctx, reg.Email).Return(model.User{}, model.ErrNotFound).Once()
		f.users.On("FindByUsername", ctx, reg.Username).Return(model.User{ID: uuid.New()}, nil).Once()

		_, err := f.build(false).Register(ctx, reg)
		require.ErrorIs(t, err, model.ErrDuplicateUsername)
	})

	t.Run("directory rejects create with reasons", func(t *testing.T) {
		f := newAuthFixture()
		createErr := &model.CreateError{Reasons: []string{"password too short", "email malformed"}}

		f.users.On("FindByEmail", ctx, reg.Email).Return(model.User{}, model.ErrNotFound).Once()
		f.users.On("FindByUsername", ctx, reg.Username).Return(model.User{}, model.ErrNotFound).Once()
		f.users.On("Create", ctx, mock.AnythingOfType("model.User"), reg.Password).Return(model.User{}, createErr).Once()

		result, err := f.build(false).Register(ctx, reg)
		require.Error(t, err)
		var got *model.CreateError
		require.ErrorAs(t, err, &got)
		assert.Contains(t, result.Message, "password too short")
		assert.Contains(t, result.Message, "email malformed")
	})
}

func TestAuth_Login(t *testing.T) {
	ctx := context.Background()
	creds := model.Credentials{Email: "alice@example.com", Password: "s3cret"}
	user := model.User{ID: uuid.New(), Username: "alice", Email: creds.Email}

	expectIssueAccess := func(f *authFixture, roles []string) {
		f.users.On("GetRoles", ctx, user).Return(roles, nil).Once()
		f.users.On("GetCustomClaims", ctx, user).Return(model.Claims{}, nil).Once()
		f.signer.On("Issue", mock.AnythingOfType("model.Claims")).Return("access", testStart.Add(24*time.Hour), nil).Once()
	}

	t.Run("reuses active refresh token", func(t *testing.T) {
		f := newAuthFixture()
		rt := activeToken(user.ID, "existing", f.clk.Now().Add(-time.Hour))

		f.limiter.On("Enforce", ctx, creds.Email, "10.0.0.1").Return(nil).Once()
		f.users.On("FindByEmail", ctx, creds.Email).Return(user, nil).Once()
		f.users.On("VerifyPassword", ctx, user, creds.Password).Return(true, nil).Once()
		expectIssueAccess(f, []string{"user"})
		f.store.On("GetActiveByUser", ctx, user.ID, f.clk.Now()).Return([]model.RefreshToken{rt}, nil).Once()

		result, err := f.build(false).Login(ctx, creds, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Authenticated)
		assert.Equal(t, "existing", result.RefreshToken)
		f.factory.AssertNotCalled(t, "Generate", mock.Anything)
	})

	t.Run("mints refresh token when none active", func(t *testing.T) {
		f := newAuthFixture()
		rt := activeToken(user.ID, "fresh", f.clk.Now())

		f.limiter.On("Enforce", ctx, creds.Email, "10.0.0.1").Return(nil).Once()
		f.users.On("FindByEmail", ctx, creds.Email).Return(user, nil).Once()
		f.users.On("VerifyPassword", ctx, user, creds.Password).Return(true, nil).Once()
		expectIssueAccess(f, []string{"user"})
		f.store.On("GetActiveByUser", ctx, user.ID, f.clk.Now()).Return([]model.RefreshToken{}, nil).Once()
		f.factory.On("Generate", user.ID).Return(rt, nil).Once()
		f.store.On("Create", ctx, rt).Return(nil).Once()

		result, err := f.build(false).Login(ctx, creds, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, "fresh", result.RefreshToken)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		f := newAuthFixture()
		f.limiter.On("Enforce", ctx, mock.Anything, mock.Anything).Return(nil)
		f.users.On("FindByEmail", ctx, "ghost@example.com").Return(model.User{}, model.ErrNotFound).Once()
		f.users.On("FindByEmail", ctx, creds.Email).Return(user, nil).Once()
		f.users.On("VerifyPassword", ctx, user, "wrong").Return(false, nil).Once()

		svc := f.build(false)

		unknownResult, unknownErr := svc.Login(ctx, model.Credentials{Email: "ghost@example.com", Password: "x"}, "")
		wrongResult, wrongErr := svc.Login(ctx, model.Credentials{Email: creds.Email, Password: "wrong"}, "")

		require.ErrorIs(t, unknownErr, model.ErrInvalidCredentials)
		require.ErrorIs(t, wrongErr, model.ErrInvalidCredentials)
		assert.Equal(t, unknownResult.Message, wrongResult.Message)
	})

	t.Run("throttled login fails like bad credentials", func(t *testing.T) {
		f := newAuthFixture()
		f.limiter.On("Enforce", ctx, creds.Email, "10.0.0.1").Return(rate.ErrTooManyAttempts).Once()

		_, err := f.build(false).Login(ctx, creds, "10.0.0.1")
		require.ErrorIs(t, err, model.ErrInvalidCredentials)
		f.users.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})

	t.Run("limiter outage fails open", func(t *testing.T) {
		f := newAuthFixture()
		rt := activeToken(user.ID, "existing", f.clk.Now())

		f.limiter.On("Enforce", ctx, creds.Email, "10.0.0.1").Return(assert.AnError).Once()
		f.users.On("FindByEmail", ctx, creds.Email).Return(user, nil).Once()
		f.users.On("VerifyPassword", ctx, user, creds.Password).Return(true, nil).Once()
		expectIssueAccess(f, []string{"user"})
		f.store.On("GetActiveByUser", ctx, user.ID, f.clk.Now()).Return([]model.RefreshToken{rt}, nil).Once()

		result, err := f.build(false).Login(ctx, creds, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Authenticated)
	})

	t.Run("nil limiter is skipped", func(t *testing.T) {
		f := newAuthFixture()
		rt := activeToken(user.ID, "existing", f.clk.Now())

		f.users.On("FindByEmail", ctx, creds.Email).Return(user, nil).Once()
		f.users.On("VerifyPassword", ctx, user, creds.Password).Return(true, nil).Once()
		expectIssueAccess(f, []string{"user"})
		f.store.On("GetActiveByUser", ctx, user.ID, f.clk.Now()).Return([]model.RefreshToken{rt}, nil).Once()

		tokens := NewTokenService(f.factory, f.store, f.clk, logger.New(0))
		svc := NewAuth(f.users, f.roles, f.signer, tokens, nil, f.clk, logger.New(0), false)

		_, err := svc.Login(ctx, creds, "10.0.0.1")
		require.NoError(t, err)
	})
}

func TestAuth_Refresh(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}

	t.Run("rotates and issues new pair", func(t *testing.T) {
		f := newAuthFixture()
		old := activeToken(user.ID, "old", f.clk.Now().Add(-time.Hour))
		replacement := activeToken(user.ID, "new", f.clk.Now())

		f.store.On("GetByValue", ctx, "old").Return(old, nil).Once()
		f.users.On("FindByID", ctx, user.ID).Return(user, nil).Once()
		f.factory.On("Generate", user.ID).Return(replacement, nil).Once()
		f.store.On("Revoke", ctx, "old", &replacement.Value, f.clk.Now()).Return(true, nil).Once()
		f.store.On("Create", ctx, replacement).Return(nil).Once()
		f.users.On("GetRoles", ctx, user).Return([]string{"user"}, nil).Once()
		f.users.On("GetCustomClaims", ctx, user).Return(model.Claims{}, nil).Once()
		f.signer.On("Issue", mock.AnythingOfType("model.Claims")).Return("access2", testStart.Add(24*time.Hour), nil).Once()

		result, err := f.build(false).Refresh(ctx, "old")
		require.NoError(t, err)
		assert.Equal(t, "new", result.RefreshToken)
		assert.Equal(t, "access2", result.AccessToken)
	})

	t.Run("unknown value", func(t *testing.T) {
		f := newAuthFixture()
		f.store.On("GetByValue", ctx, "missing").Return(model.RefreshToken{}, model.ErrNotFound).Once()

		_, err := f.build(false).Refresh(ctx, "missing")
		require.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		f := newAuthFixture()
		old := activeToken(user.ID, "old", f.clk.Now().Add(-30*24*time.Hour))

		f.store.On("GetByValue", ctx, "old").Return(old, nil).Once()

		_, err := f.build(false).Refresh(ctx, "old")
		require.ErrorIs(t, err, model.ErrInvalidToken)
		f.factory.AssertNotCalled(t, "Generate", mock.Anything)
	})

	t.Run("second use of rotated value fails", func(t *testing.T) {
		f := newAuthFixture()
		replacedBy := "new"
		revokedAt := f.clk.Now().Add(-time.Minute)
		rotated := activeToken(user.ID, "old", f.clk.Now().Add(-time.Hour))
		rotated.RevokedAt = &revokedAt
		rotated.ReplacedBy = &replacedBy

		f.store.On("GetByValue", ctx, "old").Return(rotated, nil).Once()

		_, err := f.build(false).Refresh(ctx, "old")
		require.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("lost rotation race", func(t *testing.T) {
		f := newAuthFixture()
		old := activeToken(user.ID, "old", f.clk.Now().Add(-time.Hour))
		replacement := activeToken(user.ID, "new", f.clk.Now())

		f.store.On("GetByValue", ctx, "old").Return(old, nil).Once()
		f.users.On("FindByID", ctx, user.ID).Return(user, nil).Once()
		f.factory.On("Generate", user.ID).Return(replacement, nil).Once()
		f.store.On("Revoke", ctx, "old", &replacement.Value, f.clk.Now()).Return(false, nil).Once()

		_, err := f.build(false).Refresh(ctx, "old")
		require.ErrorIs(t, err, model.ErrInvalidToken)
		f.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestAuth_Revoke(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("active token revoked once", func(t *testing.T) {
		f := newAuthFixture()
		rt := activeToken(userID, "v1", f.clk.Now())

		f.store.On("GetByValue", ctx, "v1").Return(rt, nil).Once()
		f.store.On("Revoke", ctx, "v1", (*string)(nil), f.clk.Now()).Return(true, nil).Once()

		ok, err := f.build(false).Revoke(ctx, "v1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unknown value reports false", func(t *testing.T) {
		f := newAuthFixture()
		f.store.On("GetByValue", ctx, "missing").Return(model.RefreshToken{}, model.ErrNotFound).Once()

		ok, err := f.build(false).Revoke(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("already revoked reports false", func(t *testing.T) {
		f := newAuthFixture()
		revokedAt := f.clk.Now().Add(-time.Minute)
		rt := activeToken(userID, "v1", f.clk.Now())
		rt.RevokedAt = &revokedAt

		f.store.On("GetByValue", ctx, "v1").Return(rt, nil).Once()

		ok, err := f.build(false).Revoke(ctx, "v1")
		require.NoError(t, err)
		assert.False(t, ok)
		f.store.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuth_AddRole(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: uuid.New(), Username: "alice"}

	t.Run("success", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByID", ctx, user.ID).Return(user, nil).Once()
		f.roles.On("RoleExists", ctx, "admin").Return(true, nil).Once()
		f.roles.On("IsInRole", ctx, user.ID, "admin").Return(false, nil).Once()
		f.roles.On("AssignRole", ctx, user.ID, "admin").Return(nil).Once()

		require.NoError(t, f.build(false).AddRole(ctx, user.ID, "admin"))
		f.roles.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByID", ctx, user.ID).Return(model.User{}, model.ErrNotFound).Once()

		err := f.build(false).AddRole(ctx, user.ID, "admin")
		require.ErrorIs(t, err, model.ErrUserNotFound)
	})

	t.Run("unknown role", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByID", ctx, user.ID).Return(user, nil).Once()
		f.roles.On("RoleExists", ctx, "wizard").Return(false, nil).Once()

		err := f.build(false).AddRole(ctx, user.ID, "wizard")
		require.ErrorIs(t, err, model.ErrRoleNotFound)
	})

	t.Run("already assigned", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByID", ctx, user.ID).Return(user, nil).Once()
		f.roles.On("RoleExists", ctx, "admin").Return(true, nil).Once()
		f.roles.On("IsInRole", ctx, user.ID, "admin").Return(true, nil).Once()

		err := f.build(false).AddRole(ctx, user.ID, "admin")
		require.ErrorIs(t, err, model.ErrRoleAlreadyAssigned)
		f.roles.AssertNotCalled(t, "AssignRole", mock.Anything, mock.Anything, mock.Anything)
	})
}
