// Package gencache implements a reference-counted cache that deduplicates
// "generate once, consume many times" work. A generator is an immutable,
// value-comparable description of how to produce some data; every consumer
// that requests an Equal generator shares one entry and, eventually, one
// produced value.
//
// Components:
//   - Cache[G, D, R]: the entry store. Passive: it never generates or schedules.
//   - worker: reference frame scheduler. Reads PendingGenerators, runs each
//     generator once and reports results with AssignData.
//   - resultstore: optional CAS-safe memo of produced data in a byte Provider,
//     keyed by generator fingerprint.
//   - texture: the two concrete bindings (whole textures, single images).
//
// Lifecycle of one entry:
//
//	created := c.Request(g, r)   // true => caller schedules g
//	...                          // external worker produces d
//	c.AssignData(g, d)           // Pending -> Ready (no way back)
//	d, ok := c.GetData(g)
//	c.Release(g, r)              // last release destroys the entry
//
// Lookup is a linear scan comparing generators with Equal. Set
// Options.Fingerprint to bucket entries by a hash consistent with Equal;
// IdentityFingerprint derives one from an IdentityFunc.
package gencache
