package tier

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tiercache/tiercache/internal/codec"
	"github.com/tiercache/tiercache/pkg/types"
)

const indexFileName = "index.json"

var (
	_ types.Tier    = (*Disk)(nil)
	_ types.Purger  = (*Disk)(nil)
	_ types.Flusher = (*Disk)(nil)
)

// Disk is a durable tier bounded by total physical size. Entry payloads live
// in one file each, named by a hash of the cache key; metadata lives in an
// in-memory index persisted as a JSON manifest with atomic rename.
//
// When persistence is disabled the same tier logic runs over an in-memory
// payload store and manifest writes become no-ops.
type Disk struct {
	name      types.TierName
	mu        sync.RWMutex
	maxBytes  int64
	curBytes  int64
	index     map[string]*diskItem
	store     payloadStore
	indexPath string
	logger    *log.Logger

	corrupt    uint64
	ioFailures uint64
}

// diskItem is the persisted per-entry manifest record.
type diskItem struct {
	Key          string        `json:"key"`
	File         string        `json:"file"`
	SizeBytes    int64         `json:"size_bytes"`
	StoredBytes  int64         `json:"stored_bytes"`
	CreatedAt    time.Time     `json:"created_at"`
	LastAccessed time.Time     `json:"last_accessed"`
	HitCount     int64         `json:"hit_count"`
	TTL          time.Duration `json:"ttl"`
	Compressed   bool          `json:"compressed"`
	Checksum     string        `json:"checksum"`
}

// NewDisk creates a durable tier rooted at dir. A corrupt manifest is
// discarded and the tier starts from an empty index rather than failing.
func NewDisk(name types.TierName, dir string, maxBytes int64, persist bool, logger *log.Logger) (*Disk, error) {
	if logger == nil {
		logger = log.Default()
	}

	d := &Disk{
		name:     name,
		maxBytes: maxBytes,
		index:    make(map[string]*diskItem),
		logger:   logger,
	}

	if persist {
		fs, err := newFileStore(dir)
		if err != nil {
			return nil, err
		}
		d.store = fs
		d.indexPath = filepath.Join(dir, indexFileName)
		d.loadIndex()
	} else {
		d.store = newMemStore()
	}

	return d, nil
}

// Get returns the entry for key if present and valid. Payload reads happen
// outside the index lock; a missing or corrupt payload drops the entry from
// the index and reads as a miss.
func (d *Disk) Get(key string) (*types.Entry, bool) {
	d.mu.RLock()
	item, exists := d.index[key]
	var snapshot diskItem
	if exists {
		snapshot = *item
	}
	d.mu.RUnlock()

	if !exists {
		return nil, false
	}

	now := time.Now()
	if (&types.Entry{CreatedAt: snapshot.CreatedAt, TTL: snapshot.TTL}).Expired(now) {
		d.Remove(key)
		return nil, false
	}

	data, err := d.store.read(snapshot.File)
	if err != nil {
		d.logger.Printf("warn: %s tier: failed to read payload for %q: %v", d.name, key, err)
		d.dropFailed(key, false)
		return nil, false
	}
	if codec.Checksum(data) != snapshot.Checksum {
		d.logger.Printf("warn: %s tier: checksum mismatch for %q, dropping entry", d.name, key)
		d.dropFailed(key, true)
		_ = d.store.remove(snapshot.File)
		return nil, false
	}

	d.mu.Lock()
	entry := (*types.Entry)(nil)
	if item, ok := d.index[key]; ok {
		item.LastAccessed = now
		item.HitCount++
		entry = item.toEntry(data)
	}
	d.mu.Unlock()

	if entry == nil {
		// Removed concurrently between the read and the update.
		return nil, false
	}
	return entry, true
}

// Set writes the payload first and updates the index only after the write
// succeeds, so the index never references a file that was not stored.
func (d *Disk) Set(entry *types.Entry) error {
	file := payloadName(entry.Key)
	if err := d.store.write(file, entry.Data); err != nil {
		d.mu.Lock()
		d.ioFailures++
		d.mu.Unlock()
		return fmt.Errorf("%s tier: failed to store payload for %q: %w", d.name, entry.Key, err)
	}

	item := &diskItem{
		Key:          entry.Key,
		File:         file,
		SizeBytes:    entry.SizeBytes,
		StoredBytes:  entry.StoredBytes,
		CreatedAt:    entry.CreatedAt,
		LastAccessed: entry.LastAccessed,
		HitCount:     entry.HitCount,
		TTL:          entry.TTL,
		Compressed:   entry.Compressed,
		Checksum:     codec.Checksum(entry.Data),
	}

	d.mu.Lock()
	if old, exists := d.index[entry.Key]; exists {
		d.curBytes -= old.StoredBytes
	}
	d.index[entry.Key] = item
	d.curBytes += item.StoredBytes
	d.mu.Unlock()
	return nil
}

// Remove deletes the entry for key, if present.
func (d *Disk) Remove(key string) {
	d.mu.Lock()
	item, exists := d.index[key]
	var file string
	if exists {
		file = item.File
		delete(d.index, key)
		d.curBytes -= item.StoredBytes
	}
	d.mu.Unlock()

	if exists {
		_ = d.store.remove(file)
	}
}

// EvictOldest removes and returns the entry with the smallest LastAccessed.
// The returned entry carries its payload when it could still be read, so the
// caller may demote it; Data is nil when the payload was lost.
func (d *Disk) EvictOldest() (*types.Entry, bool) {
	d.mu.Lock()
	var oldest *diskItem
	for _, item := range d.index {
		if oldest == nil || item.LastAccessed.Before(oldest.LastAccessed) {
			oldest = item
		}
	}
	if oldest == nil {
		d.mu.Unlock()
		return nil, false
	}
	snapshot := *oldest
	delete(d.index, oldest.Key)
	d.curBytes -= oldest.StoredBytes
	d.mu.Unlock()

	data, err := d.store.read(snapshot.File)
	if err != nil {
		data = nil
	}
	_ = d.store.remove(snapshot.File)
	return snapshot.toEntry(data), true
}

// OverBudget reports whether the tier's physical size exceeds its budget.
func (d *Disk) OverBudget() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.maxBytes > 0 && d.curBytes > d.maxBytes
}

// PurgeExpired removes every expired entry and returns how many were purged.
// The index lock is held only while collecting; file removal happens after.
func (d *Disk) PurgeExpired() int {
	now := time.Now()

	d.mu.Lock()
	var files []string
	for key, item := range d.index {
		if (&types.Entry{CreatedAt: item.CreatedAt, TTL: item.TTL}).Expired(now) {
			files = append(files, item.File)
			delete(d.index, key)
			d.curBytes -= item.StoredBytes
		}
	}
	d.mu.Unlock()

	for _, file := range files {
		_ = d.store.remove(file)
	}
	return len(files)
}

// Flush persists the manifest via write-to-temp and rename. It is a no-op
// when the tier is not persisting to disk.
func (d *Disk) Flush() error {
	if d.indexPath == "" {
		return nil
	}

	d.mu.RLock()
	snapshot := make(map[string]diskItem, len(d.index))
	for key, item := range d.index {
		snapshot[key] = *item
	}
	d.mu.RUnlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("%s tier: failed to marshal index: %w", d.name, err)
	}

	tmpPath := d.indexPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("%s tier: failed to write index: %w", d.name, err)
	}
	if err := os.Rename(tmpPath, d.indexPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%s tier: failed to replace index: %w", d.name, err)
	}
	return nil
}

// Len returns the number of entries currently indexed.
func (d *Disk) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.index)
}

// SizeBytes returns the total physical size of stored entries.
func (d *Disk) SizeBytes() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.curBytes
}

// Clear removes all entries and their payloads.
func (d *Disk) Clear() {
	d.mu.Lock()
	d.index = make(map[string]*diskItem)
	d.curBytes = 0
	d.mu.Unlock()

	if err := d.store.clear(); err != nil {
		d.logger.Printf("warn: %s tier: failed to clear payloads: %v", d.name, err)
	}
}

// Keys returns the keys currently indexed, in no particular order.
func (d *Disk) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	keys := make([]string, 0, len(d.index))
	for key := range d.index {
		keys = append(keys, key)
	}
	return keys
}

// Stats returns occupancy information measured in bytes.
func (d *Disk) Stats() types.TierStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := types.TierStats{
		Entries:   len(d.index),
		SizeBytes: d.curBytes,
		Capacity:  d.maxBytes,
	}
	if d.maxBytes > 0 {
		stats.Utilization = float64(d.curBytes) / float64(d.maxBytes)
	}
	return stats
}

// CompressionTotals returns the summed logical and physical sizes of
// compressed entries, for deriving the tier's compression ratio.
func (d *Disk) CompressionTotals() (original, stored int64) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, item := range d.index {
		if item.Compressed {
			original += item.SizeBytes
			stored += item.StoredBytes
		}
	}
	return original, stored
}

// ErrorCounts returns how many corrupt payloads and I/O failures the tier
// has absorbed as soft misses.
func (d *Disk) ErrorCounts() (corrupt, ioFailures uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.corrupt, d.ioFailures
}

func (d *Disk) dropFailed(key string, wasCorrupt bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if item, exists := d.index[key]; exists {
		delete(d.index, key)
		d.curBytes -= item.StoredBytes
	}
	if wasCorrupt {
		d.corrupt++
	} else {
		d.ioFailures++
	}
}

// loadIndex restores the manifest on startup. Corruption triggers a rebuild
// from an empty index; entries whose payload files are gone are skipped.
func (d *Disk) loadIndex() {
	data, err := os.ReadFile(d.indexPath)
	if err != nil {
		if !os.IsNotExist(err) {
			d.logger.Printf("warn: %s tier: failed to read index, starting empty: %v", d.name, err)
		}
		return
	}

	var items map[string]*diskItem
	if err := json.Unmarshal(data, &items); err != nil {
		d.logger.Printf("warn: %s tier: corrupt index, rebuilding from empty: %v", d.name, err)
		_ = os.Remove(d.indexPath)
		return
	}

	for key, item := range items {
		if !d.store.exists(item.File) {
			continue
		}
		d.index[key] = item
		d.curBytes += item.StoredBytes
	}
}

func (it *diskItem) toEntry(data []byte) *types.Entry {
	return &types.Entry{
		Key:          it.Key,
		Data:         data,
		SizeBytes:    it.SizeBytes,
		StoredBytes:  it.StoredBytes,
		CreatedAt:    it.CreatedAt,
		LastAccessed: it.LastAccessed,
		HitCount:     it.HitCount,
		TTL:          it.TTL,
		Compressed:   it.Compressed,
	}
}
