package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/nstrokin/authd/internal/model"
)

// AuthService is a mock of the handler.AuthService interface.
type AuthService struct {
	mock.Mock
}

func (m *AuthService) Register(ctx context.Context, reg model.Registration) (model.AuthResult, error) {
	args := m.Called(ctx, reg)
	return args.Get(0).(model.AuthResult), args.Error(1)
}

func (m *AuthService) Login(ctx context.Context, creds model.Credentials, remoteIP string) (model.AuthResult, error) {
	args := m.Called(ctx, creds, remoteIP)
	return args.Get(0).(model.AuthResult), args.Error(1)
}

func (m *AuthService) Refresh(ctx context.Context, value string) (model.AuthResult, error) {
	args := m.Called(ctx, value)
	return args.Get(0).(model.AuthResult), args.Error(1)
}

func (m *AuthService) Revoke(ctx context.Context, value string) (bool, error) {
	args := m.Called(ctx, value)
	return args.Bool(0), args.Error(1)
}

func (m *AuthService) AddRole(ctx context.Context, userID uuid.UUID, roleName string) error {
	args := m.Called(ctx, userID, roleName)
	return args.Error(0)
}
