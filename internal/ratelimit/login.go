package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LoginLimiter throttles authentication attempts per username/IP pair with
// an exponential backoff window. Failures within the window count toward the
// limit; once exceeded, each further failure doubles the lockout, capped at
// maxBackoff. A successful login resets the counter.
//
// The limiter fails open: if Redis is unavailable, logins proceed.
type LoginLimiter struct {
	client      *redis.Client
	logger      *zap.Logger
	maxFailures int
	window      time.Duration
	maxBackoff  time.Duration
}

func NewLoginLimiter(client *redis.Client, logger *zap.Logger, maxFailures int, window, maxBackoff time.Duration) *LoginLimiter {
	return &LoginLimiter{
		client:      client,
		logger:      logger,
		maxFailures: maxFailures,
		window:      window,
		maxBackoff:  maxBackoff,
	}
}

func failKey(key string) string  { return fmt.Sprintf("login:fail:%s", key) }
func blockKey(key string) string { return fmt.Sprintf("login:block:%s", key) }

// Allow reports whether an attempt for key may proceed, and if not, how long
// until the lockout expires.
func (l *LoginLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	ttl, err := l.client.TTL(ctx, blockKey(key)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		l.logger.Warn("login limiter check failed, allowing attempt",
			zap.String("key", key),
			zap.Error(err),
		)
		return true, 0
	}
	if ttl > 0 {
		return false, ttl
	}
	return true, 0
}

// RecordFailure counts a failed attempt. When the failure count passes the
// threshold, a lockout is installed whose duration doubles per extra failure.
func (l *LoginLimiter) RecordFailure(ctx context.Context, key string) {
	fk := failKey(key)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, fk)
	pipe.Expire(ctx, fk, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("login limiter failed to record failure",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}

	count := int(incr.Val())
	if count < l.maxFailures {
		return
	}

	backoff := l.window
	for i := l.maxFailures; i < count && backoff < l.maxBackoff; i++ {
		backoff *= 2
	}
	if backoff > l.maxBackoff {
		backoff = l.maxBackoff
	}

	if err := l.client.Set(ctx, blockKey(key), "1", backoff).Err(); err != nil {
		l.logger.Warn("login limiter failed to install lockout",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	// Keep the failure counter alive at least as long as the lockout so the
	// backoff keeps growing on repeated offenders.
	l.client.Expire(ctx, fk, backoff+l.window)
}

// Reset clears all limiter state for key.
func (l *LoginLimiter) Reset(ctx context.Context, key string) {
	if err := l.client.Del(ctx, failKey(key), blockKey(key)).Err(); err != nil {
		l.logger.Warn("login limiter failed to reset",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
