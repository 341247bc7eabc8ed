package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// LoginLimiter is a mock of the service.LoginLimiter interface.
type LoginLimiter struct {
	mock.Mock
}

func (m *LoginLimiter) Enforce(ctx context.Context, identifier, ip string) error {
	args := m.Called(ctx, identifier, ip)
	return args.Error(0)
}
