package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

// skipIfNoRedis skips the test unless NEWSDESK_TEST_REDIS_URL is set.
func skipIfNoRedis(t *testing.T) string {
	url := os.Getenv("NEWSDESK_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: NEWSDESK_TEST_REDIS_URL not set")
	}
	return url
}

func newTestRedisStore(t *testing.T) *RedisStore {
	url := skipIfNoRedis(t)
	opts := DefaultRedisOptions()
	opts.URL = url
	opts.Prefix = "newsdesk-test:"
	s, err := NewRedisStore(opts)
	if err != nil {
		t.Fatalf("failed to create Redis store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.DeleteByPrefix(context.Background(), "")
		_ = s.Close()
	})
	return s
}

func TestRedisStore_Basic(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, want v", got)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "k"); err != ErrMiss {
		t.Errorf("expected ErrMiss, got %v", err)
	}
}

func TestRedisStore_DeleteByPrefix(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "site:home", []byte("1"), time.Minute)
	_ = s.Set(ctx, "login:x", []byte("2"), time.Minute)

	if err := s.DeleteByPrefix(ctx, "site:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}
	if _, err := s.Get(ctx, "site:home"); err != ErrMiss {
		t.Errorf("site:home = %v, want ErrMiss", err)
	}
	if _, err := s.Get(ctx, "login:x"); err != nil {
		t.Errorf("login:x removed: %v", err)
	}
}

func TestRedisStore_Close(t *testing.T) {
	s := newTestRedisStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Ping(context.Background()); err != ErrClosed {
		t.Errorf("Ping after Close = %v, want ErrClosed", err)
	}
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	if _, err := NewRedisStore(RedisOptions{}); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := NewRedisStore(RedisOptions{URL: "not-a-url"}); err == nil {
		t.Error("expected error for invalid URL")
	}
}
