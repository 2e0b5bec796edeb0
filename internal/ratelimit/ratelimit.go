// Package ratelimit provides the token-bucket limiter shared by the
// embedding and generation provider adapters. Every provider request
// passes through a Limiter so a large ingestion cannot exhaust an API
// quota that the query path also depends on.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiting configuration for one provider.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size.
	BurstSize int
}

// Default limits are conservative, well below typical provider quotas.
var (
	// DefaultEmbedding suits embedding endpoints, which see batched
	// high-volume traffic during ingestion.
	DefaultEmbedding = Config{RequestsPerSecond: 5.0, BurstSize: 10}

	// DefaultGeneration suits chat and completion endpoints.
	DefaultGeneration = Config{RequestsPerSecond: 2.0, BurstSize: 4}
)

// Limiter is a token bucket with a backoff window for 429 responses.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// New creates a limiter with the given configuration. Zero or negative
// values fall back to DefaultEmbedding.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultEmbedding.RequestsPerSecond
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = DefaultEmbedding.BurstSize
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
	}
}

// Wait blocks until a request can be made without exceeding the rate
// limit. It also respects any backoff window set by RecordRateLimit.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if time.Now().Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}
	return l.limiter.Wait(ctx)
}

// RecordRateLimit records a provider 429 and opens a backoff window.
// retryAfter below one second falls back to a 30 second default.
func (l *Limiter) RecordRateLimit(retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if retryAfter < time.Second {
		retryAfter = 30 * time.Second
	}
	l.retryAt = time.Now().Add(retryAfter)
}

// Allow reports whether a request can be made immediately.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return l.limiter.Allow()
}
