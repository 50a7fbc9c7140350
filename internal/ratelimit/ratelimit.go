// Package ratelimit provides per-client request admission control.
//
// The limiter is keyed by an opaque client identity string; callers
// construct it (e.g. "203.0.113.9:alice"). The in-memory token bucket
// (MemoryLimiter) is the shipped implementation — the Limiter interface
// is the contract, so a shared backend can be substituted without
// touching the middleware.
package ratelimit

import "context"

// Limiter decides whether a request identified by key should be allowed.
// Implementations must be safe for concurrent use, including concurrent
// creation of per-key state.
type Limiter interface {
	// Allow returns true if the request should proceed.
	// Returning an error signals a limiter malfunction; callers should
	// treat errors as fail-open (permit the request) rather than
	// blocking traffic.
	Allow(ctx context.Context, key string) (bool, error)

	// Close releases resources (cleanup goroutines, connections).
	Close() error
}

// NoopLimiter permits every request. Used when rate limiting is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }
