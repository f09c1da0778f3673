package genstore

import (
	"context"
	"testing"
	"time"
)

func TestLocalSnapshotManyIncludesAllAndZeroForMissing(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	if _, err := s.Bump(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Bump(ctx, "b"); err != nil {
		t.Fatal(err)
	}

	got, err := s.SnapshotMany(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if got["a"] != 0 || got["b"] != 2 || got["c"] != 0 {
		t.Fatalf("got=%v want a=0,b=2,c=0", got)
	}
}

func TestLocalBumpReturnsNewGen(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	for want := uint64(1); want <= 3; want++ {
		g, err := s.Bump(ctx, "k")
		if err != nil {
			t.Fatal(err)
		}
		if g != want {
			t.Fatalf("Bump=%d want %d", g, want)
		}
	}
	if g, _ := s.Snapshot(ctx, "k"); g != 3 {
		t.Fatalf("Snapshot=%d want 3", g)
	}
}

func TestLocalCleanupPrunesOld(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	if _, err := s.Bump(ctx, "old"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := s.Bump(ctx, "fresh"); err != nil {
		t.Fatal(err)
	}
	s.Cleanup(10 * time.Millisecond)

	if g, _ := s.Snapshot(ctx, "old"); g != 0 {
		t.Fatalf("expected pruned -> 0, got %d", g)
	}
	if g, _ := s.Snapshot(ctx, "fresh"); g != 1 {
		t.Fatalf("fresh entry pruned, got %d", g)
	}
}

func TestLocalCloseIdempotent(t *testing.T) {
	s := NewLocalGenStore(time.Millisecond, time.Hour)
	if err := s.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
}
