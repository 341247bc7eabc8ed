package model

import (
	"context"

	"github.com/google/uuid"
)

// RoleDirectory is the external system of record for role membership.
type RoleDirectory interface {
	RoleExists(ctx context.Context, name string) (bool, error)
	AssignRole(ctx context.Context, userID uuid.UUID, name string) error
	IsInRole(ctx context.Context, userID uuid.UUID, name string) (bool, error)
}
