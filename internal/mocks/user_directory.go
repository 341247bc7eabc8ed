package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/nstrokin/authd/internal/model"
)

// UserDirectory is a mock of the model.UserDirectory interface.
type UserDirectory struct {
	mock.Mock
}

func (m *UserDirectory) FindByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserDirectory) FindByUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserDirectory) FindByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserDirectory) Create(ctx context.Context, user model.User, password string) (model.User, error) {
	args := m.Called(ctx, user, password)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserDirectory) VerifyPassword(ctx context.Context, user model.User, password string) (bool, error) {
	args := m.Called(ctx, user, password)
	return args.Bool(0), args.Error(1)
}

func (m *UserDirectory) Update(ctx context.Context, user model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserDirectory) GetCustomClaims(ctx context.Context, user model.User) (model.Claims, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Claims), args.Error(1)
}

func (m *UserDirectory) GetRoles(ctx context.Context, user model.User) ([]string, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
