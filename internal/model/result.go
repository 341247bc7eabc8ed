package model

import "time"

// AuthResult is the outcome of an authentication operation. It is built
// fresh per request and never persisted. Message is set only on failure.
type AuthResult struct {
	Authenticated    bool
	Message          string
	Username         string
	Email            string
	Roles            []string
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}
