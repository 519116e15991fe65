package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheGetSet(t *testing.T) {
	c := newMemoryCache()
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Fatalf("expected miss for unset key")
	}

	c.Set(ctx, "k", []byte("v"), time.Minute)
	val, ok := c.Get(ctx, "k")
	if !ok || string(val) != "v" {
		t.Fatalf("expected hit with value %q, got %q ok=%v", "v", val, ok)
	}
}

func TestMemoryCacheExpires(t *testing.T) {
	c := newMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), -time.Second)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expected expired entry to report a miss")
	}
}

func TestMemoryCacheInvalidate(t *testing.T) {
	c := newMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Invalidate(ctx, "k")
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expected invalidated entry to report a miss")
	}
}

func TestNewFallsBackToMemoryWithoutURL(t *testing.T) {
	c := New("")
	if _, ok := c.(*memoryCache); !ok {
		t.Fatalf("expected memoryCache when redisURL is empty, got %T", c)
	}
}

func TestNewFallsBackOnUnreachableRedis(t *testing.T) {
	c := New("redis://127.0.0.1:1")
	if _, ok := c.(*memoryCache); !ok {
		t.Fatalf("expected memoryCache fallback for unreachable redis, got %T", c)
	}
}
