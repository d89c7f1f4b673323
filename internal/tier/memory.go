package tier

import (
	"container/list"
	"sync"
	"time"

	"github.com/tiercache/tiercache/pkg/types"
)

// Memory is the hot tier: an in-memory store bounded by entry count with
// explicit LRU ordering. Recency follows access order, not insertion order.
type Memory struct {
	mu         sync.Mutex
	maxEntries int
	items      map[string]*memItem
	evictList  *list.List
	sizeBytes  int64
}

var _ types.Tier = (*Memory)(nil)

type memItem struct {
	entry   *types.Entry
	element *list.Element
}

// NewMemory creates a hot tier bounded at maxEntries.
func NewMemory(maxEntries int) *Memory {
	return &Memory{
		maxEntries: maxEntries,
		items:      make(map[string]*memItem),
		evictList:  list.New(),
	}
}

// Get returns the entry for key if present and valid. A hit refreshes the
// entry's recency and access metadata; an expired entry is removed.
func (m *Memory) Get(key string) (*types.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, exists := m.items[key]
	if !exists {
		return nil, false
	}

	now := time.Now()
	if item.entry.Expired(now) {
		m.removeLocked(key)
		return nil, false
	}

	item.entry.LastAccessed = now
	item.entry.HitCount++
	m.evictList.MoveToFront(item.element)
	return item.entry, true
}

// Set inserts or overwrites the entry for entry.Key. Capacity enforcement is
// driven by the owner via EvictOldest so evicted entries can be demoted
// instead of discarded.
func (m *Memory) Set(entry *types.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, exists := m.items[entry.Key]; exists {
		m.sizeBytes += entry.StoredBytes - item.entry.StoredBytes
		item.entry = entry
		m.evictList.MoveToFront(item.element)
		return nil
	}

	element := m.evictList.PushFront(entry.Key)
	m.items[entry.Key] = &memItem{entry: entry, element: element}
	m.sizeBytes += entry.StoredBytes
	return nil
}

// Remove deletes the entry for key, if present.
func (m *Memory) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(key)
}

// EvictOldest removes and returns the least recently used entry.
func (m *Memory) EvictOldest() (*types.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	element := m.evictList.Back()
	if element == nil {
		return nil, false
	}

	key := element.Value.(string)
	item := m.items[key]
	m.removeLocked(key)
	return item.entry, true
}

// OverCapacity reports whether the tier currently holds more entries than its
// configured bound.
func (m *Memory) OverCapacity() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxEntries > 0 && len(m.items) > m.maxEntries
}

// Len returns the number of entries currently held.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// SizeBytes returns the total logical size of held entries.
func (m *Memory) SizeBytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sizeBytes
}

// Clear removes all entries.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]*memItem)
	m.evictList.Init()
	m.sizeBytes = 0
}

// Keys returns the keys currently held, most recent first.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.items))
	for element := m.evictList.Front(); element != nil; element = element.Next() {
		keys = append(keys, element.Value.(string))
	}
	return keys
}

// Stats returns occupancy information. Capacity and utilization are measured
// in entries since the hot tier is bounded by count, not bytes.
func (m *Memory) Stats() types.TierStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := types.TierStats{
		Entries:   len(m.items),
		SizeBytes: m.sizeBytes,
		Capacity:  int64(m.maxEntries),
	}
	if m.maxEntries > 0 {
		stats.Utilization = float64(len(m.items)) / float64(m.maxEntries)
	}
	return stats
}

func (m *Memory) removeLocked(key string) {
	item, exists := m.items[key]
	if !exists {
		return
	}
	m.evictList.Remove(item.element)
	delete(m.items, key)
	m.sizeBytes -= item.entry.StoredBytes
}
