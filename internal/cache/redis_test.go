package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newRedisForTest(t *testing.T, prefix string) Client {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedis(Config{Driver: "redis", Addr: mr.Addr(), Prefix: prefix})
	if err != nil {
		t.Fatalf("new redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisSetGetDelete(t *testing.T) {
	c := newRedisForTest(t, "")
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("get missing: got %v, want ErrNotFound", err)
	}

	if err := c.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "v" {
		t.Errorf("get = %q, want v", got)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(ctx, "k"); err != ErrNotFound {
		t.Fatalf("get after delete: got %v, want ErrNotFound", err)
	}
}

func TestRedisTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedis(Config{Driver: "redis", Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("new redis: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	// miniredis avanza el reloj a mano.
	mr.FastForward(2 * time.Minute)
	if _, err := c.Get(ctx, "k"); err != ErrNotFound {
		t.Fatalf("expired key: got %v, want ErrNotFound", err)
	}
}

func TestRedisPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedis(Config{Driver: "redis", Addr: mr.Addr(), Prefix: "janus"})
	if err != nil {
		t.Fatalf("new redis: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("janus:k") {
		t.Error("key stored without prefix")
	}
	if got, err := c.Get(ctx, "k"); err != nil || got != "v" {
		t.Errorf("get = %q, %v", got, err)
	}
}

func TestRedisPing(t *testing.T) {
	c := newRedisForTest(t, "")
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestNewPicksDriver(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := New(Config{Driver: "redis", Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	m, err := New(Config{Driver: "memory"})
	if err != nil {
		t.Fatalf("new memory: %v", err)
	}
	defer m.Close()
	ctx := context.Background()
	if err := m.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("memory set: %v", err)
	}
	if got, _ := m.Get(ctx, "k"); got != "v" {
		t.Errorf("memory get = %q", got)
	}
}
