// Package rate implements redis-backed throttles for authentication flows.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTooManyAttempts is returned once a counter exceeds its budget.
var ErrTooManyAttempts = errors.New("too many attempts")

// LoginLimiter counts login attempts per identifier and per source address
// in fixed redis windows.
type LoginLimiter struct {
	redis       *redis.Client
	maxAttempts int
	window      time.Duration
}

func NewLoginLimiter(client *redis.Client, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		redis:       client,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// Enforce increments both counters and fails once either exceeds the
// budget. The identifier counter is checked first so a single account
// cannot be brute-forced from rotating addresses.
func (l *LoginLimiter) Enforce(ctx context.Context, identifier, ip string) error {
	if err := l.enforceKey(ctx, "login:id:"+identifier); err != nil {
		return err
	}
	if ip != "" {
		return l.enforceKey(ctx, "login:ip:"+ip)
	}
	return nil
}

func (l *LoginLimiter) enforceKey(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("login limiter redis: %w", err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("login limiter redis: %w", err)
		}
	}

	if count > int64(l.maxAttempts) {
		return ErrTooManyAttempts
	}

	return nil
}
