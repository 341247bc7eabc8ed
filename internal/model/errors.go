package model

import (
	"errors"
	"strings"
)

// Business-rule failures are carried in return values; callers branch with
// errors.Is instead of parsing messages.
var (
	ErrInvalidCredentials   = errors.New("email or password is incorrect")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrDuplicateUsername    = errors.New("username already taken")
	ErrInvalidToken         = errors.New("invalid token")
	ErrUserNotFound         = errors.New("user not found")
	ErrRoleNotFound         = errors.New("role not found")
	ErrRoleAlreadyAssigned  = errors.New("user already assigned to this role")
	ErrDirectoryUnavailable = errors.New("directory unavailable")
)

// ErrSigningConfig indicates an unusable signing configuration. It is fatal
// at startup, never returned per request.
var ErrSigningConfig = errors.New("invalid signing configuration")

// ErrNotFound is the store-level miss, translated by services into the
// errors above.
var ErrNotFound = errors.New("not found")

// CreateError carries the human-readable reasons a directory rejected a
// user creation.
type CreateError struct {
	Reasons []string
}

func (e *CreateError) Error() string {
	return "create user: " + strings.Join(e.Reasons, ", ")
}
