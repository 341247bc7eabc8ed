package handler

import (
	"errors"
	"net/http"

	"github.com/nstrokin/authd/internal/model"
)

// statusFromError maps the service error taxonomy onto HTTP status codes.
func statusFromError(err error) int {
	var createErr *model.CreateError
	if errors.As(err, &createErr) {
		return http.StatusBadRequest
	}

	switch {
	case errors.Is(err, model.ErrInvalidCredentials),
		errors.Is(err, model.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrDuplicateEmail),
		errors.Is(err, model.ErrDuplicateUsername),
		errors.Is(err, model.ErrRoleAlreadyAssigned):
		return http.StatusConflict
	case errors.Is(err, model.ErrUserNotFound),
		errors.Is(err, model.ErrRoleNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrDirectoryUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// failureMessage prefers the result's human-readable reason and keeps
// internal errors out of responses.
func failureMessage(result model.AuthResult, err error) string {
	if result.Message != "" {
		return result.Message
	}
	if statusFromError(err) == http.StatusInternalServerError {
		return "request failed"
	}
	return err.Error()
}
