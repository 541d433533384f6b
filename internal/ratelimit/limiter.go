// Package ratelimit bounds sensitive-endpoint call rates with redis-backed
// sliding-window counters shared across instances.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter struct {
	client *redis.Client
	prefix string
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client, prefix: "ratelimit"}
}

// Signature derives the stable counter key for (method, path, subject) where
// subject is the principal id when present, else the client IP.
func Signature(method, path, subject string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{method, path, subject}, "|")))
	return hex.EncodeToString(sum[:])
}

// Check atomically increments the counter for sig and reports whether the
// request fits under maxAttempts within the window. The INCR/ExpireNX
// pipeline keeps two near-simultaneous requests from both slipping past the
// ceiling. A redis fault denies: the limiter fails closed.
func (l *Limiter) Check(ctx context.Context, sig string, maxAttempts int, window time.Duration) (Result, error) {
	key := fmt.Sprintf("%s:%s", l.prefix, sig)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{Allowed: false, RetryAfter: window}, fmt.Errorf("rate limit counter: %w", err)
	}

	count := incr.Val()
	if count > int64(maxAttempts) {
		retryAfter, err := l.client.TTL(ctx, key).Result()
		if err != nil || retryAfter < 0 {
			retryAfter = window
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	remaining := maxAttempts - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining}, nil
}

// Reset clears the counter for a signature.
func (l *Limiter) Reset(ctx context.Context, sig string) error {
	return l.client.Del(ctx, fmt.Sprintf("%s:%s", l.prefix, sig)).Err()
}
