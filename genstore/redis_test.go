package genstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestRedisSnapshotAndBump(t *testing.T) {
	ctx := context.Background()
	rdb, _ := newRedis(t)
	s := NewRedisGenStore(rdb, "img")

	if g, err := s.Snapshot(ctx, "k"); err != nil || g != 0 {
		t.Fatalf("Snapshot missing: g=%d err=%v", g, err)
	}
	if g, err := s.Bump(ctx, "k"); err != nil || g != 1 {
		t.Fatalf("Bump: g=%d err=%v", g, err)
	}
	if g, err := s.Snapshot(ctx, "k"); err != nil || g != 1 {
		t.Fatalf("Snapshot after bump: g=%d err=%v", g, err)
	}

	got, err := s.SnapshotMany(ctx, []string{"k", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if got["k"] != 1 || got["missing"] != 0 {
		t.Fatalf("SnapshotMany=%v", got)
	}
}

func TestRedisBumpWithTTLExpires(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newRedis(t)
	s := NewRedisGenStoreWithTTL(rdb, "img", time.Minute)

	if g, err := s.Bump(ctx, "k"); err != nil || g != 1 {
		t.Fatalf("Bump: g=%d err=%v", g, err)
	}
	if ttl := mr.TTL("gen:img:k"); ttl != time.Minute {
		t.Fatalf("TTL=%v want 1m", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if g, err := s.Snapshot(ctx, "k"); err != nil || g != 0 {
		t.Fatalf("expired gen should read 0: g=%d err=%v", g, err)
	}
}

func TestRedisSnapshotParseError(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newRedis(t)
	s := NewRedisGenStore(rdb, "img")

	if err := mr.Set("gen:img:bad", "not-a-number"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Snapshot(ctx, "bad"); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := s.SnapshotMany(ctx, []string{"bad"}); err == nil {
		t.Fatalf("expected parse error from SnapshotMany")
	}
}
