package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// RoleDirectory is a mock of the model.RoleDirectory interface.
type RoleDirectory struct {
	mock.Mock
}

func (m *RoleDirectory) RoleExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *RoleDirectory) AssignRole(ctx context.Context, userID uuid.UUID, name string) error {
	args := m.Called(ctx, userID, name)
	return args.Error(0)
}

func (m *RoleDirectory) IsInRole(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	args := m.Called(ctx, userID, name)
	return args.Bool(0), args.Error(1)
}
