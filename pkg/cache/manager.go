package cache

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/tiercache/tiercache/internal/codec"
	"github.com/tiercache/tiercache/internal/metrics"
	"github.com/tiercache/tiercache/internal/similarity"
	"github.com/tiercache/tiercache/internal/tier"
	"github.com/tiercache/tiercache/pkg/types"
)

// Manager is the cache engine facade. It owns the three tier stores, the
// similarity index, the stats collector and the maintenance scheduler, and
// is the only component external callers use.
//
// All runtime failures while serving Get and Set fail open: the cache
// behaves as if the entry were absent and the caller sees a normal miss.
type Manager struct {
	cfg       *Config
	logger    *log.Logger
	codec     *codec.Codec
	hot       *tier.Memory
	warm      *tier.Disk
	cold      *tier.Disk
	sim       *similarity.Index
	collector *metrics.Collector
	registry  *prometheus.Registry
	sched     *scheduler
	events    chan types.MaintenanceSnapshot

	promotions sync.WaitGroup
	closed     atomic.Bool
	stopOnce   sync.Once
}

// New constructs a cache engine from cfg and starts its maintenance loop.
// A nil cfg uses DefaultConfig. Invalid configuration is the only error
// surfaced here.
func New(cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	warmDir := ""
	coldDir := ""
	if cfg.PersistToDisk {
		warmDir = filepath.Join(cfg.StorageRoot, "warm")
		coldDir = filepath.Join(cfg.StorageRoot, "cold")
	}

	warm, err := tier.NewDisk(types.TierWarm, warmDir, cfg.WarmMaxSizeBytes, cfg.PersistToDisk, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize warm tier: %w", err)
	}
	cold, err := tier.NewDisk(types.TierCold, coldDir, cfg.ColdMaxSizeBytes, cfg.PersistToDisk, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cold tier: %w", err)
	}

	m := &Manager{
		cfg:       cfg,
		logger:    logger,
		codec:     codec.New(cfg.CompressionLevel),
		hot:       tier.NewMemory(cfg.HotMaxEntries),
		warm:      warm,
		cold:      cold,
		collector: metrics.NewCollector(),
		registry:  prometheus.NewRegistry(),
		events:    make(chan types.MaintenanceSnapshot, 16),
	}

	if cfg.EnableSimilarityMatching {
		m.sim = similarity.NewIndex(cfg.MaxTrackedQueries)
	}

	m.registry.MustRegister(metrics.NewPromCollector(cfg.MetricsNamespace, m.Stats))

	m.sched = newScheduler(cfg.MaintenanceInterval, m.maintain)
	go m.sched.run()

	return m, nil
}

// Get returns the cached value for key. The tiers are consulted hot, warm,
// cold in that order; a total miss may still resolve through the similarity
// index when a near-duplicate key holds a valid entry.
func (m *Manager) Get(key string) (interface{}, bool) {
	if m.closed.Load() {
		return nil, false
	}
	if m.sim != nil {
		defer m.sim.Track(key)
	}

	if value, ok := m.getFromTiers(key, true); ok {
		return value, true
	}
	m.collector.RecordLookupMiss()

	if m.sim == nil {
		return nil, false
	}
	match, ok := m.sim.Match(key, m.cfg.SimilarityThreshold)
	if !ok {
		return nil, false
	}
	// One level only: the matched key is looked up exactly, never through
	// the similarity index again.
	value, ok := m.getFromTiers(match.Query, false)
	if !ok {
		m.sim.Forget(match.Query)
		return nil, false
	}
	m.collector.RecordSimilarityHit()
	return value, true
}

// Set serializes value and inserts it into the hot tier, demoting older
// entries down the chain as capacity dictates. A TTL override may be given;
// otherwise the configured default applies.
func (m *Manager) Set(key string, value interface{}, ttl ...time.Duration) {
	if m.closed.Load() {
		return
	}

	entryTTL := m.cfg.DefaultTTL
	if len(ttl) > 0 {
		entryTTL = ttl[0]
	}

	data, size, err := m.codec.Encode(value)
	if err != nil {
		m.logger.Printf("warn: cache: failed to encode value for %q: %v", key, err)
		return
	}

	now := time.Now()
	entry := &types.Entry{
		Key:          key,
		Data:         data,
		SizeBytes:    size,
		StoredBytes:  size,
		CreatedAt:    now,
		LastAccessed: now,
		TTL:          entryTTL,
	}

	if err := m.hot.Set(entry); err != nil {
		m.logger.Printf("warn: cache: failed to store %q: %v", key, err)
		return
	}
	m.enforceHot()
}

// Clear synchronously wipes the selected tier. TierAll (or an empty
// selector) wipes every tier and resets the similarity index.
func (m *Manager) Clear(selector types.TierName) error {
	tiers := map[types.TierName]types.Tier{
		types.TierHot:  m.hot,
		types.TierWarm: m.warm,
		types.TierCold: m.cold,
	}

	switch selector {
	case types.TierAll, "":
		for _, t := range tiers {
			t.Clear()
		}
		if m.sim != nil {
			m.sim.Reset()
		}
	default:
		t, ok := tiers[selector]
		if !ok {
			return fmt.Errorf("unknown tier selector %q", selector)
		}
		t.Clear()
	}
	return nil
}

// WarmCache pre-touches the given keys so they land in the hot tier.
// Lower-priority keys are touched first, leaving the highest-priority keys
// most recent. Best effort: keys that no longer resolve are skipped.
func (m *Manager) WarmCache(keys []types.WarmKey) types.WarmSummary {
	if m.closed.Load() || len(keys) == 0 {
		return types.WarmSummary{Total: len(keys)}
	}

	ordered := make([]types.WarmKey, len(keys))
	copy(ordered, keys)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	var found atomic.Int64
	var g errgroup.Group
	g.SetLimit(m.cfg.WarmCacheConcurrency)
	for _, wk := range ordered {
		key := wk.Key
		g.Go(func() error {
			if _, ok := m.getFromTiers(key, false); ok {
				found.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return types.WarmSummary{Total: len(keys), Found: int(found.Load())}
}

// Stats returns per-tier counters, overall hit rate, compression ratio and
// the derived health score.
func (m *Manager) Stats() types.Stats {
	compOriginal, compStored := m.cold.CompressionTotals()
	tracked := 0
	if m.sim != nil {
		tracked = m.sim.Len()
	}

	stats := m.collector.Snapshot([]metrics.Occupancy{
		{Tier: types.TierHot, Stats: m.hot.Stats()},
		{Tier: types.TierWarm, Stats: m.warm.Stats()},
		{Tier: types.TierCold, Stats: m.cold.Stats()},
	}, tracked, compOriginal, compStored)

	warmCorrupt, warmIO := m.warm.ErrorCounts()
	coldCorrupt, coldIO := m.cold.ErrorCounts()
	stats.CorruptEntries += warmCorrupt + coldCorrupt
	stats.IOFailures += warmIO + coldIO
	return stats
}

// Events exposes maintenance snapshots. The channel is buffered and never
// blocks maintenance; snapshots are dropped when nobody is receiving.
func (m *Manager) Events() <-chan types.MaintenanceSnapshot {
	return m.events
}

// MetricsHandler returns an HTTP handler serving the engine's Prometheus
// registry.
func (m *Manager) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Stop halts the maintenance scheduler, waits for in-flight promotions and
// flushes the durable tier manifests. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.closed.Store(true)
		m.sched.stop()
		m.promotions.Wait()
		m.flushTiers()
		close(m.events)
	})
}

// getFromTiers walks hot, warm, cold and returns the first valid entry's
// decoded value. With record set, per-tier counters and the overall hit
// rate are updated; the similarity and warmup paths pass false.
func (m *Manager) getFromTiers(key string, record bool) (interface{}, bool) {
	if entry, ok := m.hot.Get(key); ok {
		value, err := m.codec.Decode(entry.Data)
		if err == nil {
			if record {
				m.collector.RecordHit(types.TierHot)
			}
			return value, true
		}
		m.collector.RecordCorrupt(1)
		m.hot.Remove(key)
	}
	if record {
		m.collector.RecordMiss(types.TierHot)
	}

	if entry, ok := m.warm.Get(key); ok {
		value, err := m.codec.Decode(entry.Data)
		if err == nil {
			if record {
				m.collector.RecordHit(types.TierWarm)
			}
			m.promote(entry)
			return value, true
		}
		m.collector.RecordCorrupt(1)
		m.warm.Remove(key)
	}
	if record {
		m.collector.RecordMiss(types.TierWarm)
	}

	if entry, ok := m.cold.Get(key); ok {
		if value, restored, ok := m.thaw(entry); ok {
			if record {
				m.collector.RecordHit(types.TierCold)
			}
			m.promote(restored)
			return value, true
		}
	}
	if record {
		m.collector.RecordMiss(types.TierCold)
	}

	return nil, false
}

// thaw decompresses and decodes a cold-tier entry, returning the entry in
// its uncompressed form for promotion. Corrupt payloads are dropped.
func (m *Manager) thaw(entry *types.Entry) (interface{}, *types.Entry, bool) {
	data := entry.Data
	if entry.Compressed {
		restored, err := m.codec.Decompress(data)
		if err != nil {
			m.logger.Printf("warn: cache: failed to decompress %q: %v", entry.Key, err)
			m.collector.RecordCorrupt(1)
			m.cold.Remove(entry.Key)
			return nil, nil, false
		}
		data = restored
	}

	value, err := m.codec.Decode(data)
	if err != nil {
		m.collector.RecordCorrupt(1)
		m.cold.Remove(entry.Key)
		return nil, nil, false
	}

	restored := *entry
	restored.Data = data
	restored.StoredBytes = restored.SizeBytes
	restored.Compressed = false
	return value, &restored, true
}

// promote copies an entry found in a lower tier into hot. It is detached
// and best effort: the caller already has its value, and a failed or slow
// promotion must not delay it.
func (m *Manager) promote(entry *types.Entry) {
	copied := *entry
	m.promotions.Add(1)
	go func() {
		defer m.promotions.Done()
		if err := m.hot.Set(&copied); err != nil {
			return
		}
		m.enforceHot()
	}()
}

// enforceHot evicts least recently used hot entries over capacity and hands
// each one to the demotion chain. A single insert only ever cascades one
// entry per tier, so the chain terminates.
func (m *Manager) enforceHot() {
	for m.hot.OverCapacity() {
		evicted, ok := m.hot.EvictOldest()
		if !ok {
			break
		}
		m.collector.RecordEviction(types.TierHot)
		m.demoteToWarm(evicted)
	}
}

func (m *Manager) demoteToWarm(entry *types.Entry) {
	if entry.Expired(time.Now()) {
		return
	}
	if err := m.warm.Set(entry); err != nil {
		m.logger.Printf("warn: cache: %v", err)
		return
	}
	m.enforceWarm()
}

// enforceWarm evicts oldest warm entries until the tier is at budget.
// Evicted entries above the compression threshold move to cold compressed;
// everything else is discarded.
func (m *Manager) enforceWarm() {
	for m.warm.OverBudget() {
		evicted, ok := m.warm.EvictOldest()
		if !ok {
			break
		}
		m.collector.RecordEviction(types.TierWarm)
		m.demoteToCold(evicted)
	}
	if m.warm.OverBudget() {
		m.logger.Printf("warn: cache: warm tier still over budget after enforcement")
	}
}

func (m *Manager) demoteToCold(entry *types.Entry) {
	if entry.Expired(time.Now()) || entry.Data == nil {
		return
	}
	if !m.cfg.EnableCompression || entry.SizeBytes <= m.cfg.CompressionThresholdBytes {
		return // terminal discard per demotion policy
	}

	compressed, err := m.codec.Compress(entry.Data)
	if err != nil {
		m.logger.Printf("warn: cache: failed to compress %q: %v", entry.Key, err)
		return
	}

	frozen := *entry
	frozen.Data = compressed
	frozen.StoredBytes = int64(len(compressed))
	frozen.Compressed = true

	if err := m.cold.Set(&frozen); err != nil {
		m.logger.Printf("warn: cache: %v", err)
		return
	}
	m.enforceCold()
}

// enforceCold evicts oldest cold entries and discards them; cold is the
// terminal tier.
func (m *Manager) enforceCold() {
	for m.cold.OverBudget() {
		if _, ok := m.cold.EvictOldest(); !ok {
			break
		}
		m.collector.RecordEviction(types.TierCold)
	}
	if m.cold.OverBudget() {
		m.logger.Printf("warn: cache: cold tier still over budget after enforcement")
	}
}

// flushTiers persists the durable tier manifests, logging rather than
// propagating failures.
func (m *Manager) flushTiers() {
	for _, f := range []types.Flusher{m.warm, m.cold} {
		if err := f.Flush(); err != nil {
			m.logger.Printf("warn: cache: %v", err)
		}
	}
}

// maintain is one maintenance pass: purge expired entries from the durable
// tiers, persist their manifests, then emit a snapshot.
func (m *Manager) maintain() {
	expired := 0
	for _, p := range []types.Purger{m.warm, m.cold} {
		expired += p.PurgeExpired()
	}
	m.collector.RecordExpired(expired)
	m.flushTiers()

	snapshot := types.MaintenanceSnapshot{
		Timestamp: time.Now(),
		Expired:   expired,
		Stats:     m.Stats(),
	}
	select {
	case m.events <- snapshot:
	default:
	}
}
