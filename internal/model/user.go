package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserDirectory is the external system of record for user identity.
// Password material never leaves the directory; the service only asks it
// to verify.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, user User, password string) (User, error)
	VerifyPassword(ctx context.Context, user User, password string) (bool, error)
	Update(ctx context.Context, user User) error
	GetCustomClaims(ctx context.Context, user User) (Claims, error)
	GetRoles(ctx context.Context, user User) ([]string, error)
}

// User represents a stored identity.
type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Credentials is a login request payload.
type Credentials struct {
	Email    string
	Password string
}

// Registration is a signup request payload.
type Registration struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}
