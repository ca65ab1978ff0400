package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*miniredis.Miniredis, *Limiter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, New(client, "rf:", cfg)
}

func TestCheckRotateWithinBudget(t *testing.T) {
	_, limiter := newTestLimiter(t, Config{
		EnableRotateThrottle:   true,
		MaxRotateAttempts:      3,
		RotateCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.CheckRotate(ctx, "fp-1"); err != nil {
			t.Fatalf("attempt %d should pass: %v", i+1, err)
		}
	}
	if err := limiter.CheckRotate(ctx, "fp-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited over budget, got %v", err)
	}
}

func TestCheckRotateWindowResets(t *testing.T) {
	mr, limiter := newTestLimiter(t, Config{
		EnableRotateThrottle:   true,
		MaxRotateAttempts:      1,
		RotateCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	if err := limiter.CheckRotate(ctx, "fp-1"); err != nil {
		t.Fatalf("first attempt should pass: %v", err)
	}
	if err := limiter.CheckRotate(ctx, "fp-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := limiter.CheckRotate(ctx, "fp-1"); err != nil {
		t.Fatalf("attempt after window should pass: %v", err)
	}
}

func TestCheckRotateIsolatesFingerprints(t *testing.T) {
	_, limiter := newTestLimiter(t, Config{
		EnableRotateThrottle:   true,
		MaxRotateAttempts:      1,
		RotateCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	if err := limiter.CheckRotate(ctx, "fp-1"); err != nil {
		t.Fatalf("fp-1 should pass: %v", err)
	}
	if err := limiter.CheckRotate(ctx, "fp-2"); err != nil {
		t.Fatalf("fp-2 must have its own budget: %v", err)
	}
}

func TestCheckRotateIsolatesPrefixes(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := Config{
		EnableRotateThrottle:   true,
		MaxRotateAttempts:      1,
		RotateCooldownDuration: time.Minute,
	}
	a := New(client, "a:", cfg)
	b := New(client, "b:", cfg)
	ctx := context.Background()

	if err := a.CheckRotate(ctx, "fp-1"); err != nil {
		t.Fatalf("first limiter should pass: %v", err)
	}
	if err := b.CheckRotate(ctx, "fp-1"); err != nil {
		t.Fatalf("limiters with distinct prefixes must not share counters: %v", err)
	}
	if err := a.CheckRotate(ctx, "fp-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited within one prefix, got %v", err)
	}
}

func TestCheckRotateDisabled(t *testing.T) {
	_, limiter := newTestLimiter(t, Config{})
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if err := limiter.CheckRotate(ctx, "fp-1"); err != nil {
			t.Fatalf("disabled throttle must never limit: %v", err)
		}
	}
}

func TestResetRotateClearsCounter(t *testing.T) {
	_, limiter := newTestLimiter(t, Config{
		EnableRotateThrottle:   true,
		MaxRotateAttempts:      1,
		RotateCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	if err := limiter.CheckRotate(ctx, "fp-1"); err != nil {
		t.Fatalf("first attempt should pass: %v", err)
	}
	if err := limiter.ResetRotate(ctx, "fp-1"); err != nil {
		t.Fatalf("ResetRotate failed: %v", err)
	}
	if err := limiter.CheckRotate(ctx, "fp-1"); err != nil {
		t.Fatalf("attempt after reset should pass: %v", err)
	}
}
