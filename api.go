package gencache

// Generator is the capability the cache needs from a generator handle:
// value equality of the described work. Two distinct instances describing
// the same work must report Equal; identity is never consulted.
type Generator[G any] interface {
	Equal(other G) bool
}

// Cache maps generators to the data they produce and tracks which
// referencers depend on each generator. All methods are safe for concurrent use.
//
// G is the generator handle, D the produced-data handle and R the referencer.
type Cache[G Generator[G], D any, R comparable] interface {
	// Request registers r's interest in g. It returns true iff no entry
	// for g existed and one was created; the caller that sees true is the
	// only one that should schedule g for generation.
	Request(generator G, referencer R) bool

	// Release drops r's interest in g. The entry, and any data it holds,
	// is destroyed once no referencer is left. Unknown g or r is a no-op.
	Release(generator G, referencer R)

	// GetData returns the data assigned to g. ok is false if there is no
	// entry for g or generation has not completed yet.
	GetData(generator G) (data D, ok bool)

	// PendingGenerators returns every distinct generator whose data has not
	// been assigned yet, in the order the entries were created.
	PendingGenerators() []G

	// AssignData stores the produced data for g. An unknown g or a nil d is
	// reported as a warning and otherwise ignored; a nil handle never makes
	// an entry ready.
	AssignData(generator G, data D)

	// Contains reports whether an entry (pending or ready) exists for g.
	Contains(generator G) bool

	// Referencers returns a snapshot of the referencers holding interest in g.
	Referencers(generator G) []R

	// ReleaseAll drops every interest held by r and returns the number of
	// entries that were destroyed as a result.
	ReleaseAll(referencer R) int

	Len() int
	Stats() Stats
}

// Stats is a point-in-time view of the cache contents.
type Stats struct {
	Entries     int // pending + ready
	Pending     int
	Ready       int
	Referencers int // sum of referencer set sizes
}

// Options tune a Cache. The zero value is usable.
type Options[G any] struct {
	Name   string // used in logs and hooks; "" => "gencache"
	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks

	// Fingerprint enables the bucketed index. nil keeps the plain linear
	// scan. Generators that are Equal MUST produce the same fingerprint.
	Fingerprint FingerprintFunc[G]
}

func New[G Generator[G], D any, R comparable](opts Options[G]) Cache[G, D, R] {
	return newCache[G, D, R](opts)
}
