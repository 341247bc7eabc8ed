package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/nstrokin/authd/internal/model"
)

const retryBackoff = 100 * time.Millisecond

// withRetry runs a directory call and retries it once after a short backoff
// when the failure looks transient. A second timeout surfaces as
// ErrDirectoryUnavailable, which callers may safely retry.
func withRetry[T any](ctx context.Context, call func(context.Context) (T, error)) (T, error) {
	out, err := call(ctx)
	if err == nil || !isTransient(err) {
		return out, err
	}

	select {
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %v", model.ErrDirectoryUnavailable, ctx.Err())
	case <-time.After(retryBackoff):
	}

	out, err = call(ctx)
	if err != nil && isTransient(err) {
		var zero T
		return zero, fmt.Errorf("%w: %v", model.ErrDirectoryUnavailable, err)
	}
	return out, err
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
