package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned when a counter exceeds its budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transient Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableRotateThrottle   bool
	MaxRotateAttempts      int
	RotateCooldownDuration time.Duration
}

// Limiter enforces per-fingerprint rotation budgets using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client. Counter keys
// live under prefix, so limiters with distinct prefixes sharing one Redis
// keep separate budgets.
func New(redisClient redis.UniversalClient, prefix string, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

// CheckRotate enforces the rotation limit by incrementing the counter for the
// presented fingerprint and applying the cooldown TTL. Counting presentations
// rather than families keeps the limiter total: it works before the family is
// resolved and throttles unknown-credential probing too.
func (l *Limiter) CheckRotate(ctx context.Context, fingerprint string) error {
	if !l.config.EnableRotateThrottle {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.rotateKey(fingerprint), l.config.RotateCooldownDuration)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRotateAttempts) {
		return ErrRateLimited
	}

	return nil
}

// ResetRotate clears the rotation counter for a fingerprint. Called after the
// fingerprint has been rotated out and can never be presented legitimately
// again.
func (l *Limiter) ResetRotate(ctx context.Context, fingerprint string) error {
	if err := l.redis.Del(ctx, l.rotateKey(fingerprint)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func (l *Limiter) rotateKey(fingerprint string) string {
	return l.prefix + "rr:" + fingerprint
}
