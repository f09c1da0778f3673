package gencache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; they run on the caller's
// goroutine, never while a cache lock is held.
type Hooks interface {
	// A Request created a new pending entry.
	EntryCreated(cache string)

	// The last referencer released an entry. ready tells whether data had
	// been assigned before it was dropped.
	EntryDestroyed(cache string, ready bool)

	// AssignData was called for a generator with no entry.
	AssignUnknown(cache string)

	// A worker failed to produce data for a pending generator.
	// The entry stays pending and is retried on the next frame.
	GenerationFailed(cache string, err error)

	// A result store entry was deleted on read.
	// reason ∈ {"corrupt", "gen_mismatch", "value_decode"}
	StoreSelfHeal(storageKey, reason string)

	// The store's provider returned ok=false on Set (backpressure/eviction).
	StoreSetRejected(storageKey string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) EntryCreated(string)            {}
func (NopHooks) EntryDestroyed(string, bool)    {}
func (NopHooks) AssignUnknown(string)           {}
func (NopHooks) GenerationFailed(string, error) {}
func (NopHooks) StoreSelfHeal(string, string)   {}
func (NopHooks) StoreSetRejected(string)        {}
