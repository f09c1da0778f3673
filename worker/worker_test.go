package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/gencache"
	"github.com/unkn0wn-root/gencache/codec"
	"github.com/unkn0wn-root/gencache/resultstore"
)

type square struct{ N int }

func (s square) Equal(o square) bool { return s.N == o.N }

func squareOf(_ context.Context, g square) (int, error) { return g.N * g.N, nil }

type memProvider struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[key]
	return v, ok, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[key] = value
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, key)
	return nil
}

func (p *memProvider) Close(context.Context) error { return nil }

type failHooks struct {
	gencache.NopHooks
	failed atomic.Int32
}

func (h *failHooks) GenerationFailed(string, error) { h.failed.Add(1) }

func newCache() gencache.Cache[square, int, string] {
	return gencache.New[square, int, string](gencache.Options[square]{Name: "squares"})
}

func TestNewValidates(t *testing.T) {
	_, err := New[square, int](nil, Options[square, int]{Generate: squareOf})
	require.ErrorIs(t, err, ErrNilSource)

	_, err = New[square, int](newCache(), Options[square, int]{})
	require.ErrorIs(t, err, ErrNilGenerate)
}

func TestRunFrameAssignsEveryPending(t *testing.T) {
	c := newCache()
	for i := 1; i <= 10; i++ {
		c.Request(square{N: i}, "a")
		c.Request(square{N: i}, "b")
	}

	r, err := New[square, int](c, Options[square, int]{Generate: squareOf, Concurrency: 3})
	require.NoError(t, err)

	rep, err := r.RunFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rep.Frame)
	assert.Equal(t, 10, rep.Pending)
	assert.Equal(t, 10, rep.Generated)
	assert.Empty(t, c.PendingGenerators())

	for i := 1; i <= 10; i++ {
		d, ok := c.GetData(square{N: i})
		require.True(t, ok)
		assert.Equal(t, i*i, d)
	}

	rep, err = r.RunFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rep.Frame)
	assert.Zero(t, rep.Pending)
}

func TestConcurrencyLimit(t *testing.T) {
	c := newCache()
	for i := 0; i < 20; i++ {
		c.Request(square{N: i}, "r")
	}

	var cur, peak atomic.Int32
	gen := func(ctx context.Context, g square) (int, error) {
		n := cur.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		cur.Add(-1)
		return g.N, nil
	}

	r, err := New[square, int](c, Options[square, int]{Generate: gen, Concurrency: 4})
	require.NoError(t, err)
	_, err = r.RunFrame(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestFailuresStayPending(t *testing.T) {
	c := newCache()
	c.Request(square{N: 1}, "r")
	c.Request(square{N: 2}, "r")

	boom := errors.New("boom")
	h := &failHooks{}
	gen := func(_ context.Context, g square) (int, error) {
		if g.N == 2 {
			return 0, boom
		}
		return 1, nil
	}
	r, err := New[square, int](c, Options[square, int]{Name: "squares", Generate: gen, Hooks: h})
	require.NoError(t, err)

	rep, err := r.RunFrame(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var gerr *GenerateError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "squares", gerr.Cache)
	assert.Equal(t, fmt.Sprintf("%v", square{N: 2}), gerr.Generator)

	assert.Equal(t, 1, rep.Generated)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, int32(1), h.failed.Load())
	assert.Equal(t, []square{{N: 2}}, c.PendingGenerators())
}

func TestNilResultIsGenerateError(t *testing.T) {
	c := gencache.New[square, *int, string](gencache.Options[square]{Name: "squares"})
	c.Request(square{N: 4}, "r")

	h := &failHooks{}
	gen := func(context.Context, square) (*int, error) { return nil, nil }
	r, err := New[square, *int](c, Options[square, *int]{Name: "squares", Generate: gen, Hooks: h})
	require.NoError(t, err)

	rep, err := r.RunFrame(context.Background())
	require.ErrorIs(t, err, gencache.ErrNilData)
	var gerr *GenerateError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 1, rep.Failed)
	assert.Zero(t, rep.Generated)
	assert.Equal(t, int32(1), h.failed.Load())
	assert.Equal(t, []square{{N: 4}}, c.PendingGenerators())

	_, ok := c.GetData(square{N: 4})
	assert.False(t, ok)
}

func TestPanicIsRecovered(t *testing.T) {
	c := newCache()
	c.Request(square{N: 3}, "r")

	gen := func(context.Context, square) (int, error) { panic("bad pixels") }
	r, err := New[square, int](c, Options[square, int]{Generate: gen})
	require.NoError(t, err)

	rep, err := r.RunFrame(context.Background())
	require.ErrorIs(t, err, ErrPanic)
	assert.Equal(t, 1, rep.Failed)
	assert.True(t, c.Contains(square{N: 3}))
}

func TestTimeout(t *testing.T) {
	c := newCache()
	c.Request(square{N: 3}, "r")

	gen := func(ctx context.Context, _ square) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	r, err := New[square, int](c, Options[square, int]{Generate: gen, Timeout: 5 * time.Millisecond})
	require.NoError(t, err)

	_, err = r.RunFrame(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCanceledFrameSkips(t *testing.T) {
	c := newCache()
	c.Request(square{N: 1}, "r")

	var calls atomic.Int32
	gen := func(context.Context, square) (int, error) { calls.Add(1); return 1, nil }
	r, err := New[square, int](c, Options[square, int]{Generate: gen})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := r.RunFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Skipped)
	assert.Zero(t, calls.Load())
	assert.Len(t, c.PendingGenerators(), 1)
}

func TestStoreMemoizesAcrossEntryLifetimes(t *testing.T) {
	ctx := context.Background()
	store, err := resultstore.New[int](resultstore.Options[int]{
		Namespace: "square",
		Provider:  &memProvider{m: map[string][]byte{}},
		Codec:     codec.JSON[int]{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })

	var calls atomic.Int32
	gen := func(ctx context.Context, g square) (int, error) {
		calls.Add(1)
		return squareOf(ctx, g)
	}

	c := newCache()
	r, err := New[square, int](c, Options[square, int]{
		Generate: gen,
		Store:    store,
		Identity: gencache.EncodedIdentity[square](codec.MustCBOR[square](codec.CBOROptions{Deterministic: true})),
	})
	require.NoError(t, err)

	c.Request(square{N: 7}, "r")
	rep, err := r.RunFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Generated)
	c.Release(square{N: 7}, "r")
	require.False(t, c.Contains(square{N: 7}))

	c.Request(square{N: 7}, "r")
	rep, err = r.RunFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.FromStore)
	assert.Equal(t, int32(1), calls.Load())

	d, ok := c.GetData(square{N: 7})
	require.True(t, ok)
	assert.Equal(t, 49, d)
}

func TestRunStopsWithContext(t *testing.T) {
	c := newCache()
	c.Request(square{N: 2}, "r")

	r, err := New[square, int](c, Options[square, int]{Generate: squareOf})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, time.Millisecond) }()

	require.Eventually(t, func() bool {
		_, ok := c.GetData(square{N: 2})
		return ok
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
