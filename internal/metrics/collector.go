package metrics

import (
	"sync"

	"github.com/tiercache/tiercache/pkg/types"
)

// Collector aggregates hit/miss/eviction counters per tier and derives the
// bounded health score. Tiers report occupancy; the collector owns every
// counter so a single snapshot is internally consistent.
type Collector struct {
	mu             sync.Mutex
	tiers          map[types.TierName]*tierCounters
	totalHits      uint64
	totalMisses    uint64
	similarityHits uint64
	corrupt        uint64
	ioFailures     uint64
	expiredPurged  uint64
}

type tierCounters struct {
	hits      uint64
	misses    uint64
	evictions uint64
}

// NewCollector creates a collector tracking the three standard tiers.
func NewCollector() *Collector {
	return &Collector{
		tiers: map[types.TierName]*tierCounters{
			types.TierHot:  {},
			types.TierWarm: {},
			types.TierCold: {},
		},
	}
}

// RecordHit counts a read served by the given tier. One call per lookup: it
// also counts toward the overall hit rate.
func (c *Collector) RecordHit(tier types.TierName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tiers[tier]; ok {
		t.hits++
	}
	c.totalHits++
}

// RecordMiss counts a read the given tier could not serve. Tier misses do
// not affect the overall hit rate; see RecordLookupMiss.
func (c *Collector) RecordMiss(tier types.TierName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tiers[tier]; ok {
		t.misses++
	}
}

// RecordLookupMiss counts one lookup that missed every tier. A lookup
// resolved via the similarity path still counts here: the tier chain missed.
func (c *Collector) RecordLookupMiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalMisses++
}

// RecordEviction counts an entry evicted from the given tier.
func (c *Collector) RecordEviction(tier types.TierName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tiers[tier]; ok {
		t.evictions++
	}
}

// RecordSimilarityHit counts a miss resolved through the similarity index.
func (c *Collector) RecordSimilarityHit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.similarityHits++
}

// RecordCorrupt counts a payload dropped because it failed to decode.
func (c *Collector) RecordCorrupt(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.corrupt += n
}

// RecordIOFailure counts a disk failure absorbed as a soft miss.
func (c *Collector) RecordIOFailure(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ioFailures += n
}

// RecordExpired counts entries purged by maintenance.
func (c *Collector) RecordExpired(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expiredPurged += uint64(n)
}

// Occupancy describes one tier's current fullness, supplied by the caller
// at snapshot time.
type Occupancy struct {
	Tier  types.TierName
	Stats types.TierStats
}

// Snapshot combines the collector's counters with current tier occupancy and
// the cold tier's compression totals into a Stats value.
func (c *Collector) Snapshot(occupancy []Occupancy, trackedQueries int, compressedOriginal, compressedStored int64) types.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := types.Stats{
		Tiers:          make(map[types.TierName]types.TierStats, len(occupancy)),
		TotalHits:      c.totalHits,
		TotalMisses:    c.totalMisses,
		SimilarityHits: c.similarityHits,
		TrackedQueries: trackedQueries,
		CorruptEntries: c.corrupt,
		IOFailures:     c.ioFailures,
		ExpiredPurged:  c.expiredPurged,
	}

	maxFullness := 0.0
	for _, occ := range occupancy {
		ts := occ.Stats
		if counters, ok := c.tiers[occ.Tier]; ok {
			ts.Hits = counters.hits
			ts.Misses = counters.misses
			ts.Evictions = counters.evictions
		}
		if ts.Utilization > maxFullness {
			maxFullness = ts.Utilization
		}
		stats.Tiers[occ.Tier] = ts
	}

	if total := stats.TotalHits + stats.TotalMisses; total > 0 {
		stats.HitRate = float64(stats.TotalHits) / float64(total)
	}

	stats.CompressionRatio = 1.0
	if compressedOriginal > 0 {
		stats.CompressionRatio = float64(compressedStored) / float64(compressedOriginal)
	}

	stats.HealthScore = HealthScore(stats.HitRate, maxFullness, stats.CompressionRatio)
	return stats
}

// HealthScore derives the 0-100 health metric: start at 100, subtract up to
// 40 for a poor hit rate and up to 20 for the fullest tier, add a flat 10
// when compression is earning its keep, then clamp.
func HealthScore(hitRate, maxFullness, compressionRatio float64) float64 {
	score := 100.0
	score -= (1 - hitRate) * 40
	score -= maxFullness * 20
	if compressionRatio < 0.7 {
		score += 10
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
