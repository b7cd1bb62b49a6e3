// Package store holds the client-side state containers: the auth session,
// the public server list and the admin server list. Each store is an explicit
// value with its own lifecycle (New, Reset) and is safe for concurrent use.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRetriesExhausted is returned once the retry budget is spent. Automatic
	// retries stay off until Retry or ResetRetries is called.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrOffline is returned when retrying stopped because the API is unreachable.
	ErrOffline = errors.New("API unreachable, retry paused")

	// ErrNotAuthenticated is returned by admin operations without a valid session.
	ErrNotAuthenticated = errors.New("not authenticated, please login")
)

// DefaultMaxRetries is the retry budget of the server store.
const DefaultMaxRetries = 3

// Backoff returns the delay after failed attempt n (1-based): 2^(n-1) seconds.
func Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	if n > 16 {
		n = 16
	}

	return time.Duration(1<<(n-1)) * time.Second
}

// sleepCtx waits d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
