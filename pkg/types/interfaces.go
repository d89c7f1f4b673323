package types

// Tier is a single cache level. All implementations are safe for concurrent
// use; each tier guards its own index so operations on one tier never block
// another.
type Tier interface {
	// Get returns the entry for key if present and not expired, updating
	// its access time and hit count. Expired entries are removed lazily.
	Get(key string) (*Entry, bool)

	// Set inserts or overwrites the entry for entry.Key.
	Set(entry *Entry) error

	// Remove deletes the entry for key, if present.
	Remove(key string)

	// EvictOldest removes and returns the entry with the smallest
	// LastAccessed, or false when the tier is empty.
	EvictOldest() (*Entry, bool)

	// Len returns the number of entries currently indexed.
	Len() int

	// SizeBytes returns the total physical size of stored entries.
	SizeBytes() int64

	// Clear removes all entries.
	Clear()

	// Stats returns occupancy information for the tier. Hit, miss and
	// eviction counters are maintained by the caller, not the tier.
	Stats() TierStats
}

// Purger is implemented by tiers that support an eager expiry sweep.
type Purger interface {
	// PurgeExpired removes every expired entry and returns how many were
	// removed.
	PurgeExpired() int
}

// Flusher is implemented by tiers with a durable index.
type Flusher interface {
	// Flush persists the tier's index. Implementations write to a
	// temporary file and rename so the on-disk index is always complete.
	Flush() error
}
