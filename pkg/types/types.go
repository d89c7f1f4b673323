package types

import "time"

// TierName identifies a cache level.
type TierName string

const (
	TierHot  TierName = "hot"
	TierWarm TierName = "warm"
	TierCold TierName = "cold"

	// TierAll selects every tier in operations that take a tier selector.
	TierAll TierName = "all"
)

// Entry is the unit of storage moved between tiers.
//
// SizeBytes is the logical serialized size and never changes after creation.
// StoredBytes is the physical size on the owning tier; it differs from
// SizeBytes only when the payload is stored compressed.
type Entry struct {
	Key          string        `json:"key"`
	Data         []byte        `json:"-"`
	SizeBytes    int64         `json:"size_bytes"`
	StoredBytes  int64         `json:"stored_bytes"`
	CreatedAt    time.Time     `json:"created_at"`
	LastAccessed time.Time     `json:"last_accessed"`
	HitCount     int64         `json:"hit_count"`
	TTL          time.Duration `json:"ttl"`
	Compressed   bool          `json:"compressed"`
}

// Expired reports whether the entry's TTL has elapsed at the given time.
// A non-positive TTL means the entry never expires.
func (e *Entry) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.Sub(e.CreatedAt) >= e.TTL
}

// TierStats represents per-tier cache statistics.
type TierStats struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Evictions   uint64  `json:"evictions"`
	Entries     int     `json:"entries"`
	SizeBytes   int64   `json:"size_bytes"`
	Capacity    int64   `json:"capacity"`
	Utilization float64 `json:"utilization"`
}

// Stats represents combined cache statistics across all tiers.
type Stats struct {
	Tiers            map[TierName]TierStats `json:"tiers"`
	TotalHits        uint64                 `json:"total_hits"`
	TotalMisses      uint64                 `json:"total_misses"`
	HitRate          float64                `json:"hit_rate"`
	SimilarityHits   uint64                 `json:"similarity_hits"`
	TrackedQueries   int                    `json:"tracked_queries"`
	CorruptEntries   uint64                 `json:"corrupt_entries"`
	IOFailures       uint64                 `json:"io_failures"`
	ExpiredPurged    uint64                 `json:"expired_purged"`
	CompressionRatio float64                `json:"compression_ratio"`
	HealthScore      float64                `json:"health_score"`
}

// MaintenanceSnapshot is emitted after each maintenance pass.
type MaintenanceSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Expired   int       `json:"expired"`
	Stats     Stats     `json:"stats"`
}

// WarmKey names a key to pre-touch along with its priority. Higher priority
// keys are touched later so they end up most recent in the hot tier.
type WarmKey struct {
	Key      string `json:"key"`
	Priority int    `json:"priority"`
}

// WarmSummary reports the outcome of a cache warmup.
type WarmSummary struct {
	Total int `json:"total"`
	Found int `json:"found"`
}
