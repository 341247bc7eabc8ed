package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/nstrokin/authd/internal/model"
)

// RefreshTokenStore is a mock of the model.RefreshTokenStore interface.
type RefreshTokenStore struct {
	mock.Mock
}

func (m *RefreshTokenStore) Create(ctx context.Context, token model.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *RefreshTokenStore) GetByValue(ctx context.Context, value string) (model.RefreshToken, error) {
	args := m.Called(ctx, value)
	return args.Get(0).(model.RefreshToken), args.Error(1)
}

func (m *RefreshTokenStore) GetActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]model.RefreshToken, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RefreshToken), args.Error(1)
}

func (m *RefreshTokenStore) Revoke(ctx context.Context, value string, replacedBy *string, now time.Time) (bool, error) {
	args := m.Called(ctx, value, replacedBy, now)
	return args.Bool(0), args.Error(1)
}

func (m *RefreshTokenStore) RevokeAllByUser(ctx context.Context, userID uuid.UUID, now time.Time) error {
	args := m.Called(ctx, userID, now)
	return args.Error(0)
}
