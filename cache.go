package gencache

import (
	"slices"
	"sync"

	"github.com/unkn0wn-root/gencache/internal/util"
)

const defaultName = "gencache"

type entry[G any, D any, R comparable] struct {
	generator G
	refs      map[R]struct{}
	data      D
	ready     bool

	fp      string
	indexed bool // false => lives in cache.overflow, fingerprint failed
}

type cache[G Generator[G], D any, R comparable] struct {
	name  string
	log   Logger
	hooks Hooks
	fp    FingerprintFunc[G]

	mu      sync.Mutex
	entries []*entry[G, D, R] // creation order

	// populated only when fp != nil
	buckets  map[string][]*entry[G, D, R]
	overflow []*entry[G, D, R]
}

func newCache[G Generator[G], D any, R comparable](opts Options[G]) *cache[G, D, R] {
	c := &cache[G, D, R]{
		name:  util.Coalesce(opts.Name, defaultName),
		log:   util.Coalesce[Logger](opts.Logger, NopLogger{}),
		hooks: util.Coalesce[Hooks](opts.Hooks, NopHooks{}),
		fp:    opts.Fingerprint,
	}
	if c.fp != nil {
		c.buckets = make(map[string][]*entry[G, D, R])
	}
	return c
}

func (c *cache[G, D, R]) Request(g G, r R) bool {
	created := c.request(g, r)
	if created {
		c.log.Debug("entry created", Fields{"cache": c.name})
		c.hooks.EntryCreated(c.name)
	}
	return created
}

func (c *cache[G, D, R]) request(g G, r R) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.find(g)
	created := e == nil
	if created {
		e = c.insert(g)
	}
	e.refs[r] = struct{}{}
	return created
}

func (c *cache[G, D, R]) Release(g G, r R) {
	destroyed, ready := c.release(g, r)
	if destroyed {
		c.destroyed(ready)
	}
}

func (c *cache[G, D, R]) release(g G, r R) (destroyed, ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.find(g)
	if e == nil {
		return false, false
	}
	delete(e.refs, r)
	if len(e.refs) > 0 {
		return false, false
	}
	c.remove(e)
	return true, e.ready
}

func (c *cache[G, D, R]) ReleaseAll(r R) int {
	states := c.releaseAll(r)
	for _, ready := range states {
		c.destroyed(ready)
	}
	return len(states)
}

// releaseAll returns the ready flag of every destroyed entry.
func (c *cache[G, D, R]) releaseAll(r R) []bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	var states []bool
	for _, e := range slices.Clone(c.entries) {
		if _, ok := e.refs[r]; !ok {
			continue
		}
		delete(e.refs, r)
		if len(e.refs) == 0 {
			c.remove(e)
			states = append(states, e.ready)
		}
	}
	return states
}

func (c *cache[G, D, R]) destroyed(ready bool) {
	c.log.Debug("entry destroyed", Fields{"cache": c.name, "ready": ready})
	c.hooks.EntryDestroyed(c.name, ready)
}

func (c *cache[G, D, R]) GetData(g G) (D, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.find(g); e != nil && e.ready {
		return e.data, true
	}
	var zero D
	return zero, false
}

func (c *cache[G, D, R]) PendingGenerators() []G {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []G
	for _, e := range c.entries {
		if e.ready {
			continue
		}
		if slices.ContainsFunc(out, e.generator.Equal) {
			continue
		}
		out = append(out, e.generator)
	}
	return out
}

func (c *cache[G, D, R]) AssignData(g G, d D) {
	if util.IsNil(d) {
		c.log.Warn("assign data called with nil data", Fields{"cache": c.name, "err": ErrNilData})
		return
	}
	found, replaced := c.assign(g, d)
	if !found {
		err := &UnknownGeneratorError{Cache: c.name, Op: "AssignData"}
		c.log.Warn("assign data called with non-existent generator", Fields{"cache": c.name, "err": err})
		c.hooks.AssignUnknown(c.name)
		return
	}
	if replaced {
		c.log.Debug("data replaced on ready entry", Fields{"cache": c.name})
	}
}

func (c *cache[G, D, R]) assign(g G, d D) (found, replaced bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.find(g)
	if e == nil {
		return false, false
	}
	replaced = e.ready
	e.data = d
	e.ready = true
	return true, replaced
}

func (c *cache[G, D, R]) Contains(g G) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.find(g) != nil
}

func (c *cache[G, D, R]) Referencers(g G) []R {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.find(g)
	if e == nil {
		return nil
	}
	out := make([]R, 0, len(e.refs))
	for r := range e.refs {
		out = append(out, r)
	}
	return out
}

func (c *cache[G, D, R]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *cache[G, D, R]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Entries: len(c.entries)}
	for _, e := range c.entries {
		if e.ready {
			s.Ready++
		} else {
			s.Pending++
		}
		s.Referencers += len(e.refs)
	}
	return s
}

// find returns the entry whose generator is Equal to g, or nil.
// c.mu must be held.
func (c *cache[G, D, R]) find(g G) *entry[G, D, R] {
	if c.fp == nil {
		return scan(c.entries, g)
	}
	fp, err := c.fp(g)
	if err != nil {
		return scan(c.entries, g)
	}
	if e := scan(c.buckets[fp], g); e != nil {
		return e
	}
	return scan(c.overflow, g)
}

func scan[G Generator[G], D any, R comparable](list []*entry[G, D, R], g G) *entry[G, D, R] {
	for _, e := range list {
		if e.generator.Equal(g) {
			return e
		}
	}
	return nil
}

// c.mu must be held and no entry Equal to g may exist.
func (c *cache[G, D, R]) insert(g G) *entry[G, D, R] {
	e := &entry[G, D, R]{generator: g, refs: make(map[R]struct{}, 1)}
	c.entries = append(c.entries, e)
	if c.fp == nil {
		return e
	}
	fp, err := c.fp(g)
	if err != nil {
		c.overflow = append(c.overflow, e)
		return e
	}
	e.fp, e.indexed = fp, true
	c.buckets[fp] = append(c.buckets[fp], e)
	return e
}

// c.mu must be held.
func (c *cache[G, D, R]) remove(e *entry[G, D, R]) {
	c.entries = without(c.entries, e)
	if c.fp == nil {
		return
	}
	if !e.indexed {
		c.overflow = without(c.overflow, e)
		return
	}
	if b := without(c.buckets[e.fp], e); len(b) > 0 {
		c.buckets[e.fp] = b
	} else {
		delete(c.buckets, e.fp)
	}
}

func without[T comparable](s []T, v T) []T {
	if i := slices.Index(s, v); i >= 0 {
		return slices.Delete(s, i, i+1)
	}
	return s
}
