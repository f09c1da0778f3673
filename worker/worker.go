// Package worker is the reference scheduler for a gencache.Cache. Each frame
// it collects the cache's pending generators, runs every one of them once
// with bounded concurrency and reports the results with AssignData.
//
//	r, _ := worker.New[texture.ImageGenerator, *texture.ImageData](images, worker.Options[...]{
//	    Name:     "images",
//	    Generate: texture.GenerateImage,
//	})
//	go r.Run(ctx, 16*time.Millisecond)
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/gencache"
	"github.com/unkn0wn-root/gencache/internal/util"
	"github.com/unkn0wn-root/gencache/resultstore"
)

// GenerateFunc produces the data described by a generator.
type GenerateFunc[G, D any] func(ctx context.Context, generator G) (D, error)

// Source is the part of a gencache.Cache a Runner drives.
type Source[G, D any] interface {
	PendingGenerators() []G
	AssignData(generator G, data D)
}

type Options[G, D any] struct {
	Name     string             // "" => "worker"
	Generate GenerateFunc[G, D] // required

	Concurrency int           // 0 => GOMAXPROCS
	Timeout     time.Duration // per generator; 0 => no timeout

	Logger gencache.Logger // nil => NopLogger
	Hooks  gencache.Hooks  // nil => NopHooks

	// Store and Identity together enable memoization: results are looked
	// up by generator identity before generating and written back afterwards.
	Store    *resultstore.Store[D]
	Identity gencache.IdentityFunc[G]
}

// Report summarizes one frame.
type Report struct {
	Frame     uint64
	Pending   int // generators listed at frame start
	Generated int
	FromStore int
	Failed    int
	Skipped   int // not started because ctx ended
	Duration  time.Duration
}

type Runner[G, D any] struct {
	src      Source[G, D]
	name     string
	generate GenerateFunc[G, D]
	limit    int
	timeout  time.Duration
	log      gencache.Logger
	hooks    gencache.Hooks
	store    *resultstore.Store[D]
	identity gencache.IdentityFunc[G]

	frameMu sync.Mutex // frames never overlap
	frame   uint64
}

func New[G, D any](src Source[G, D], opts Options[G, D]) (*Runner[G, D], error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if opts.Generate == nil {
		return nil, ErrNilGenerate
	}
	r := &Runner[G, D]{
		src:      src,
		name:     util.Coalesce(opts.Name, "worker"),
		generate: opts.Generate,
		limit:    util.Coalesce(opts.Concurrency, runtime.GOMAXPROCS(0)),
		timeout:  opts.Timeout,
		log:      util.Coalesce[gencache.Logger](opts.Logger, gencache.NopLogger{}),
		hooks:    util.Coalesce[gencache.Hooks](opts.Hooks, gencache.NopHooks{}),
	}
	if opts.Store != nil && opts.Identity != nil {
		r.store, r.identity = opts.Store, opts.Identity
	}
	return r, nil
}

// RunFrame generates every generator pending at frame start. The returned
// error joins one *GenerateError per failed generator.
func (r *Runner[G, D]) RunFrame(ctx context.Context) (Report, error) {
	r.frameMu.Lock()
	defer r.frameMu.Unlock()

	start := time.Now()
	r.frame++
	pending := r.src.PendingGenerators()
	rep := Report{Frame: r.frame, Pending: len(pending)}

	var (
		mu   sync.Mutex
		errs []error
		eg   errgroup.Group
	)
	memos := r.memos(ctx, pending)
	eg.SetLimit(r.limit)
	for i, g := range pending {
		eg.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				rep.Skipped++
				mu.Unlock()
				return nil
			}
			fromStore, err := r.produce(ctx, g, memos[i])

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				rep.Failed++
				errs = append(errs, err)
			case fromStore:
				rep.FromStore++
			default:
				rep.Generated++
			}
			return nil
		})
	}
	_ = eg.Wait()

	rep.Duration = time.Since(start)
	if rep.Pending > 0 {
		r.log.Debug("frame done", gencache.Fields{
			"worker":    r.name,
			"frame":     rep.Frame,
			"pending":   rep.Pending,
			"generated": rep.Generated,
			"fromStore": rep.FromStore,
			"failed":    rep.Failed,
			"skipped":   rep.Skipped,
			"took":      rep.Duration,
		})
	}
	return rep, errors.Join(errs...)
}

// Run drives a frame every interval until ctx ends. Frame errors are logged
// and reported through hooks; the affected generators are retried.
func (r *Runner[G, D]) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			_, _ = r.RunFrame(ctx)
		}
	}
}

// memo is the result store position of one generator, captured before it runs.
type memo struct {
	id  []byte
	obs uint64
}

// memos computes the identity of every pending generator and snapshots their
// generations in one call. Generators without an identity get nil and bypass
// the store.
func (r *Runner[G, D]) memos(ctx context.Context, pending []G) []*memo {
	out := make([]*memo, len(pending))
	if r.store == nil {
		return out
	}
	var (
		ids  [][]byte
		idxs []int
	)
	for i, g := range pending {
		id, err := r.identity(g)
		if err != nil || len(id) == 0 {
			r.log.Debug("generator has no identity, store bypassed", gencache.Fields{"worker": r.name, "err": err})
			continue
		}
		ids = append(ids, id)
		idxs = append(idxs, i)
	}
	gens := r.store.SnapshotGens(ctx, ids)
	for j, i := range idxs {
		out[i] = &memo{id: ids[j], obs: gens[j]}
	}
	return out
}

func (r *Runner[G, D]) produce(ctx context.Context, g G, m *memo) (fromStore bool, err error) {
	if m != nil {
		d, ok, err := r.store.Get(ctx, m.id)
		if err != nil {
			r.log.Warn("result store read failed", gencache.Fields{"worker": r.name, "err": err})
		}
		if ok && !util.IsNil(d) {
			r.src.AssignData(g, d)
			return true, nil
		}
	}

	d, err := r.run(ctx, g)
	if err == nil && util.IsNil(d) {
		err = gencache.ErrNilData
	}
	if err != nil {
		gerr := &GenerateError{Cache: r.name, Generator: fmt.Sprintf("%v", g), Err: err}
		r.log.Warn("generation failed", gencache.Fields{"worker": r.name, "err": gerr})
		r.hooks.GenerationFailed(r.name, gerr)
		return false, gerr
	}
	r.src.AssignData(g, d)

	if m != nil {
		if err := r.store.SetWithGen(ctx, m.id, d, m.obs, 0); err != nil {
			r.log.Warn("result store write failed", gencache.Fields{"worker": r.name, "err": err})
		}
	}
	return false, nil
}

func (r *Runner[G, D]) run(ctx context.Context, g G) (d D, err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("generator panicked", gencache.Fields{
				"worker": r.name,
				"panic":  p,
				"stack":  string(debug.Stack()),
			})
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	return r.generate(ctx, g)
}
