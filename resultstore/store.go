// Package resultstore memoizes generator output in a byte Provider, keyed by
// generator identity (the canonical encoding of a generator, see
// gencache.IdentityFunc), with compare-and-swap safety via per-key generations.
//
// Keys:
//
//	result:<ns>:<sha256(identity) prefix>
//
// Every stored frame carries the full identity, so two generators whose
// identities hash alike never read each other's data.
//
// CAS pattern (worker.Runner batches the snapshots of a frame with SnapshotGens):
//
//	obs := store.SnapshotGen(ctx, id) // before generating
//	v   := generate()
//	_   = store.SetWithGen(ctx, id, v, obs, 0) // write iff current gen == obs
//
// Invalidate bumps the generation, so a generation racing with it can never
// publish a value produced from the old inputs.
package resultstore

import (
	"bytes"
	"context"
	"time"

	"github.com/unkn0wn-root/gencache"
	c "github.com/unkn0wn-root/gencache/codec"
	gen "github.com/unkn0wn-root/gencache/genstore"
	"github.com/unkn0wn-root/gencache/internal/util"
	"github.com/unkn0wn-root/gencache/internal/wire"
	pr "github.com/unkn0wn-root/gencache/provider"
)

const (
	defaultTTL          = 10 * time.Minute
	defaultSweep        = time.Hour
	defaultGenRetention = 30 * 24 * time.Hour
)

// SetCostFunc returns the provider cost of one stored value.
type SetCostFunc func(storageKey string, raw []byte) int64

// Options configure a Store. Namespace, Provider and Codec are required.
type Options[V any] struct {
	Namespace string // e.g. "texture", "image"
	Provider  pr.Provider
	Codec     c.Codec[V]

	Logger          gencache.Logger // nil => NopLogger
	Hooks           gencache.Hooks  // nil => NopHooks
	DefaultTTL      time.Duration   // 0 => 10m
	CleanupInterval time.Duration   // local genstore sweep; 0 => 1h
	GenRetention    time.Duration   // 0 => 30d
	ComputeSetCost  SetCostFunc     // nil => len(raw)
	GenStore        gen.GenStore    // nil => LocalGenStore, closed with the Store
	Disabled        bool
}

type Store[V any] struct {
	ns       string
	provider pr.Provider
	codec    c.Codec[V]
	log      gencache.Logger
	hooks    gencache.Hooks
	enabled  bool

	defaultTTL     time.Duration
	computeSetCost SetCostFunc

	gen     gen.GenStore
	ownsGen bool
}

func New[V any](opts Options[V]) (*Store[V], error) {
	if opts.Provider == nil {
		return nil, ErrNoProvider
	}
	if opts.Codec == nil {
		return nil, ErrNoCodec
	}
	if opts.Namespace == "" {
		return nil, ErrNoNamespace
	}

	s := &Store[V]{
		ns:       opts.Namespace,
		provider: opts.Provider,
		codec:    opts.Codec,
		enabled:  !opts.Disabled,
	}
	s.log = util.Coalesce[gencache.Logger](opts.Logger, gencache.NopLogger{})
	s.hooks = util.Coalesce[gencache.Hooks](opts.Hooks, gencache.NopHooks{})
	s.defaultTTL = util.Coalesce(opts.DefaultTTL, defaultTTL)

	if opts.ComputeSetCost != nil {
		s.computeSetCost = opts.ComputeSetCost
	} else {
		s.computeSetCost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	}

	if opts.GenStore != nil {
		s.gen = opts.GenStore
	} else {
		s.gen = gen.NewLocalGenStore(
			util.Coalesce(opts.CleanupInterval, defaultSweep),
			util.Coalesce(opts.GenRetention, defaultGenRetention),
		)
		s.ownsGen = true
	}
	return s, nil
}

func (s *Store[V]) Enabled() bool { return s.enabled }

// Close closes the provider, and the generation store if New created it.
func (s *Store[V]) Close(ctx context.Context) error {
	if s.ownsGen {
		_ = s.gen.Close(ctx)
	}
	return s.provider.Close(ctx)
}

// Get returns the value stored for the generator identity id. Corrupt, stale
// and undecodable entries are deleted and reported as a miss. An entry written
// by a different generator whose identity hashes to the same key is a miss
// and is left for the next SetWithGen to replace.
func (s *Store[V]) Get(ctx context.Context, id []byte) (V, bool, error) {
	var zero V
	if !s.enabled {
		return zero, false, nil
	}
	k := s.key(id)
	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil || !ok {
		return zero, false, err
	}
	res, err := wire.DecodeResult(raw)
	if err != nil {
		s.selfHeal(ctx, k, "corrupt")
		return zero, false, nil
	}
	if !bytes.Equal(res.Identity, id) {
		s.log.Debug("result belongs to another generator", gencache.Fields{"key": k})
		return zero, false, nil
	}
	cur, err := s.snapshot(ctx, k)
	if err != nil {
		return zero, false, nil
	}
	if res.Gen != cur {
		s.selfHeal(ctx, k, "gen_mismatch")
		return zero, false, nil
	}
	v, err := s.codec.Decode(res.Payload)
	if err != nil {
		s.selfHeal(ctx, k, "value_decode")
		return zero, false, nil
	}
	return v, true, nil
}

// SetWithGen stores v for id iff its generation is still observedGen.
// ttl == 0 uses the default TTL.
func (s *Store[V]) SetWithGen(ctx context.Context, id []byte, v V, observedGen uint64, ttl time.Duration) error {
	if !s.enabled {
		return nil
	}
	if len(id) == 0 {
		return ErrNoIdentity
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	k := s.key(id)
	cur, err := s.snapshot(ctx, k)
	if err != nil {
		return nil
	}
	if cur != observedGen {
		s.log.Debug("result write skipped (gen mismatch)", gencache.Fields{"key": k, "obs": observedGen, "cur": cur})
		return nil
	}
	payload, err := s.codec.Encode(v)
	if err != nil {
		return err
	}
	raw, err := wire.EncodeResult(wire.Result{Gen: observedGen, Identity: id, Payload: payload})
	if err != nil {
		return err
	}
	ok, err := s.provider.Set(ctx, k, raw, s.computeSetCost(k, raw), ttl)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Debug("result write rejected by provider (pressure)", gencache.Fields{"key": k})
		s.hooks.StoreSetRejected(k)
	}
	return nil
}

// Invalidate bumps the generation of id and deletes its stored value.
func (s *Store[V]) Invalidate(ctx context.Context, id []byte) error {
	if !s.enabled {
		return nil
	}
	k := s.key(id)
	newGen, bumpErr := s.gen.Bump(ctx, k)
	delErr := s.provider.Del(ctx, k)
	if bumpErr != nil || delErr != nil {
		err := &InvalidateError{Key: k, BumpErr: bumpErr, DelErr: delErr}
		if bumpErr != nil && delErr != nil {
			s.log.Error("invalidate outage", gencache.Fields{"key": k, "err": err})
		}
		return err
	}
	s.log.Debug("invalidated result (bumped gen + deleted)", gencache.Fields{"key": k, "newGen": newGen})
	return nil
}

// SnapshotGen returns the current generation of id; 0 if unknown.
// A generation store error also reads as 0 and is logged.
func (s *Store[V]) SnapshotGen(ctx context.Context, id []byte) uint64 {
	g, _ := s.snapshot(ctx, s.key(id))
	return g
}

// SnapshotGens is SnapshotGen for many identities in one generation store
// round trip. out[i] belongs to ids[i]. On error every identity reads as 0.
func (s *Store[V]) SnapshotGens(ctx context.Context, ids [][]byte) []uint64 {
	out := make([]uint64, len(ids))
	if len(ids) == 0 {
		return out
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	gens, err := s.gen.SnapshotMany(ctx, keys)
	if err != nil {
		s.log.Warn("gen snapshot error", gencache.Fields{"count": len(keys), "err": err})
	}
	for i, k := range keys {
		out[i] = gens[k]
	}
	return out
}

func (s *Store[V]) snapshot(ctx context.Context, k string) (uint64, error) {
	g, err := s.gen.Snapshot(ctx, k)
	if err != nil {
		s.log.Warn("gen snapshot error", gencache.Fields{"key": k, "err": err})
		return 0, err
	}
	return g, nil
}

func (s *Store[V]) selfHeal(ctx context.Context, k, reason string) {
	_ = s.provider.Del(ctx, k)
	s.log.Debug("result self-healed", gencache.Fields{"key": k, "reason": reason})
	s.hooks.StoreSelfHeal(k, reason)
}

// key hashes the identity; Get compares the full identity on read.
func (s *Store[V]) key(id []byte) string {
	return util.StorageKey("result", s.ns, util.Fingerprint(id))
}
