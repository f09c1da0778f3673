// Package asynchook moves gencache.Hooks calls off the caller's goroutine.
// Events are queued to a fixed pool of workers and dropped when the queue is
// full, so a slow sink never stalls Request, Release or a worker frame.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000)
//	defer hooks.Close()
//
//	images := texture.NewImageDataManager(gencache.Options[texture.ImageGenerator]{Hooks: hooks})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/gencache"
)

type Hooks struct {
	inner   gencache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Uint64
}

var _ gencache.Hooks = (*Hooks)(nil)

func New(inner gencache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events raised after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.closed.Store(true)
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped returns how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	if h.closed.Load() {
		h.dropped.Add(1)
		return
	}
	defer func() {
		// lost the race with Close
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) EntryCreated(c string)           { h.try(func() { h.inner.EntryCreated(c) }) }
func (h *Hooks) EntryDestroyed(c string, r bool) { h.try(func() { h.inner.EntryDestroyed(c, r) }) }
func (h *Hooks) AssignUnknown(c string)          { h.try(func() { h.inner.AssignUnknown(c) }) }
func (h *Hooks) StoreSetRejected(k string)       { h.try(func() { h.inner.StoreSetRejected(k) }) }
func (h *Hooks) StoreSelfHeal(k, r string)       { h.try(func() { h.inner.StoreSelfHeal(k, r) }) }
func (h *Hooks) GenerationFailed(c string, err error) {
	h.try(func() { h.inner.GenerationFailed(c, err) })
}
