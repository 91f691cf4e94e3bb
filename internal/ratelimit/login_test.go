package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T, maxFailures int, window, maxBackoff time.Duration) (*LoginLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLoginLimiter(client, zap.NewNop(), maxFailures, window, maxBackoff), mr
}

func TestAllow_FreshKey(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute, 15*time.Minute)

	ok, retry := limiter.Allow(context.Background(), "alice|1.2.3.4")
	assert.True(t, ok)
	assert.Zero(t, retry)
}

func TestBlocksAfterMaxFailures(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute, 15*time.Minute)
	ctx := context.Background()
	key := "alice|1.2.3.4"

	for i := 0; i < 2; i++ {
		limiter.RecordFailure(ctx, key)
		ok, _ := limiter.Allow(ctx, key)
		assert.True(t, ok, "attempt %d should still be allowed", i+1)
	}

	limiter.RecordFailure(ctx, key)
	ok, retry := limiter.Allow(ctx, key)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
}

func TestBackoffDoubles(t *testing.T) {
	limiter, mr := newTestLimiter(t, 2, time.Minute, 15*time.Minute)
	ctx := context.Background()
	key := "bob|5.6.7.8"

	limiter.RecordFailure(ctx, key)
	limiter.RecordFailure(ctx, key)
	first := mr.TTL(blockKey(key))

	limiter.RecordFailure(ctx, key)
	second := mr.TTL(blockKey(key))

	assert.Greater(t, second, first)
}

func TestBackoffCapped(t *testing.T) {
	limiter, mr := newTestLimiter(t, 2, time.Minute, 4*time.Minute)
	ctx := context.Background()
	key := "carol|9.9.9.9"

	for i := 0; i < 10; i++ {
		limiter.RecordFailure(ctx, key)
	}

	assert.LessOrEqual(t, mr.TTL(blockKey(key)), 4*time.Minute)
}

func TestResetClearsLockout(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2, time.Minute, 15*time.Minute)
	ctx := context.Background()
	key := "alice|1.2.3.4"

	limiter.RecordFailure(ctx, key)
	limiter.RecordFailure(ctx, key)
	ok, _ := limiter.Allow(ctx, key)
	assert.False(t, ok)

	limiter.Reset(ctx, key)
	ok, retry := limiter.Allow(ctx, key)
	assert.True(t, ok)
	assert.Zero(t, retry)
}

func TestLockoutExpires(t *testing.T) {
	limiter, mr := newTestLimiter(t, 2, time.Minute, 15*time.Minute)
	ctx := context.Background()
	key := "dave|1.1.1.1"

	limiter.RecordFailure(ctx, key)
	limiter.RecordFailure(ctx, key)
	ok, _ := limiter.Allow(ctx, key)
	assert.False(t, ok)

	mr.FastForward(20 * time.Minute)
	ok, _ = limiter.Allow(ctx, key)
	assert.True(t, ok)
}

func TestFailsOpenWhenRedisDown(t *testing.T) {
	limiter, mr := newTestLimiter(t, 2, time.Minute, 15*time.Minute)
	ctx := context.Background()
	key := "eve|2.2.2.2"

	limiter.RecordFailure(ctx, key)
	limiter.RecordFailure(ctx, key)

	mr.Close()

	ok, _ := limiter.Allow(ctx, key)
	assert.True(t, ok)

	// These only log; they must not panic with Redis gone.
	limiter.RecordFailure(ctx, key)
	limiter.Reset(ctx, key)
}
