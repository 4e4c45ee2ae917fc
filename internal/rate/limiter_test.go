package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, cfg), mr
}

func TestLoginBudgetAndWindow(t *testing.T) {
	ctx := context.Background()
	l, mr := newLimiter(t, Config{MaxLoginAttempts: 3, LoginWindow: time.Minute})

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "a@x.com", ""); err != nil {
			t.Fatalf("attempt %d: unexpected %v", i, err)
		}
		if err := l.IncrementLogin(ctx, "a@x.com", ""); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if err := l.CheckLogin(ctx, "a@x.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.CheckLogin(ctx, "b@x.com", ""); err != nil {
		t.Fatalf("other email must not be limited: %v", err)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.CheckLogin(ctx, "a@x.com", ""); err != nil {
		t.Fatalf("expected window to reset, got %v", err)
	}
}

func TestResetLoginClearsEmailCounter(t *testing.T) {
	ctx := context.Background()
	l, _ := newLimiter(t, Config{MaxLoginAttempts: 2, LoginWindow: time.Minute, EnableIPThrottle: true})

	_ = l.IncrementLogin(ctx, "a@x.com", "10.0.0.1")
	_ = l.IncrementLogin(ctx, "a@x.com", "10.0.0.1")
	if err := l.ResetLogin(ctx, "a@x.com"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, _ := l.LoginAttempts(ctx, "a@x.com"); n != 0 {
		t.Fatalf("expected 0 attempts after reset, got %d", n)
	}
	if err := l.CheckLogin(ctx, "a@x.com", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("IP budget must survive an email reset, got %v", err)
	}
}

func TestLimiterRedisDown(t *testing.T) {
	l, mr := newLimiter(t, Config{MaxLoginAttempts: 1, LoginWindow: time.Minute})
	mr.Close()
	if err := l.CheckLogin(context.Background(), "a@x.com", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
