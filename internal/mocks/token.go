package mocks

import (
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/nstrokin/authd/internal/model"
)

// TokenSigner is a mock of the model.TokenSigner interface.
type TokenSigner struct {
	mock.Mock
}

func (m *TokenSigner) Issue(claims model.Claims) (string, time.Time, error) {
	args := m.Called(claims)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *TokenSigner) Verify(token string) (model.Claims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Claims), args.Error(1)
}

// RefreshFactory is a mock of the model.RefreshFactory interface.
type RefreshFactory struct {
	mock.Mock
}

func (m *RefreshFactory) Generate(userID uuid.UUID) (model.RefreshToken, error) {
	args := m.Called(userID)
	return args.Get(0).(model.RefreshToken), args.Error(1)
}
