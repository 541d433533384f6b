package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxlog/logbook-backend/internal/testutil"
)

// Runs the counter pipeline against a real Redis server so the INCR and
// ExpireNX semantics are exercised end to end, not just against miniredis.
func TestLimiter_AgainstRealRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tr := testutil.NewTestRedis(t)
	limiter := NewLimiter(tr.Client)
	ctx := context.Background()

	t.Run("enforces ceiling and reports retry window", func(t *testing.T) {
		tr.Flush(t)
		sig := Signature("POST", "/api/auth/login", "203.0.113.7")

		for i := 0; i < 3; i++ {
			result, err := limiter.Check(ctx, sig, 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "attempt %d should be allowed", i+1)
			assert.Equal(t, 2-i, result.Remaining)
		}

		result, err := limiter.Check(ctx, sig, 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Greater(t, result.RetryAfter, time.Duration(0))
		assert.LessOrEqual(t, result.RetryAfter, time.Minute)
	})

	t.Run("window really expires", func(t *testing.T) {
		tr.Flush(t)
		sig := Signature("POST", "/api/auth/login", "203.0.113.8")

		result, err := limiter.Check(ctx, sig, 1, time.Second)
		require.NoError(t, err)
		require.True(t, result.Allowed)

		result, err = limiter.Check(ctx, sig, 1, time.Second)
		require.NoError(t, err)
		require.False(t, result.Allowed)

		time.Sleep(1500 * time.Millisecond)

		result, err = limiter.Check(ctx, sig, 1, time.Second)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})

	t.Run("reset clears the counter", func(t *testing.T) {
		tr.Flush(t)
		sig := Signature("POST", "/api/auth/login", "203.0.113.9")

		_, err := limiter.Check(ctx, sig, 1, time.Minute)
		require.NoError(t, err)
		result, err := limiter.Check(ctx, sig, 1, time.Minute)
		require.NoError(t, err)
		require.False(t, result.Allowed)

		require.NoError(t, limiter.Reset(ctx, sig))

		result, err = limiter.Check(ctx, sig, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})
}
