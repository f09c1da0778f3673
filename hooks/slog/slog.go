// Package sloghooks logs gencache.Hooks events through log/slog.
package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/gencache"
	"github.com/unkn0wn-root/gencache/internal/util"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	LifecycleEvery uint64 // EntryCreated, EntryDestroyed
	SelfHealEvery  uint64
	// Optional key redactor. Defaults to the sha256 fingerprint of the key.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	lifecycleCtr atomic.Uint64
	selfHealCtr  atomic.Uint64
}

var _ gencache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	return util.Fingerprint([]byte(k))
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) EntryCreated(cache string) {
	if h.l == nil || !sample(h.opts.LifecycleEvery, &h.lifecycleCtr) {
		return
	}
	h.l.Debug("gencache.entry_created", "cache", cache)
}

func (h *Hooks) EntryDestroyed(cache string, ready bool) {
	if h.l == nil || !sample(h.opts.LifecycleEvery, &h.lifecycleCtr) {
		return
	}
	h.l.Debug("gencache.entry_destroyed",
		"cache", cache,
		"ready", ready)
}

func (h *Hooks) AssignUnknown(cache string) {
	if h.l == nil {
		return
	}
	h.l.Warn("gencache.assign_unknown", "cache", cache)
}

func (h *Hooks) GenerationFailed(cache string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("gencache.generation_failed",
		"cache", cache,
		"err", err)
}

func (h *Hooks) StoreSelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("gencache.store_self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) StoreSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("gencache.store_set_rejected", "key", h.redact(storageKey))
}
