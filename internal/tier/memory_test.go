package tier

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tiercache/tiercache/pkg/types"
)

func newEntry(key string, data []byte, ttl time.Duration) *types.Entry {
	now := time.Now()
	return &types.Entry{
		Key:          key,
		Data:         data,
		SizeBytes:    int64(len(data)),
		StoredBytes:  int64(len(data)),
		CreatedAt:    now,
		LastAccessed: now,
		TTL:          ttl,
	}
}

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory(10)

	if err := m.Set(newEntry("a", []byte("alpha"), time.Hour)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	entry, ok := m.Get("a")
	if !ok {
		t.Fatal("expected hit for key a")
	}
	if string(entry.Data) != "alpha" {
		t.Errorf("got %q, want alpha", entry.Data)
	}
	if entry.HitCount != 1 {
		t.Errorf("expected hit count 1, got %d", entry.HitCount)
	}

	if _, ok := m.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestMemory_GetExpired(t *testing.T) {
	m := NewMemory(10)

	entry := newEntry("stale", []byte("x"), time.Millisecond)
	entry.CreatedAt = time.Now().Add(-time.Second)
	if err := m.Set(entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, ok := m.Get("stale"); ok {
		t.Error("expected expired entry to read as a miss")
	}
	if m.Len() != 0 {
		t.Errorf("expected lazy removal, len = %d", m.Len())
	}
}

func TestMemory_EvictOldestFollowsAccessOrder(t *testing.T) {
	m := NewMemory(10)

	for _, key := range []string{"a", "b", "c"} {
		if err := m.Set(newEntry(key, []byte(key), time.Hour)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	// Touch a so b becomes least recently used.
	if _, ok := m.Get("a"); !ok {
		t.Fatal("expected hit for a")
	}

	evicted, ok := m.EvictOldest()
	if !ok {
		t.Fatal("expected an eviction")
	}
	if evicted.Key != "b" {
		t.Errorf("expected b evicted (recency by access, not insertion), got %q", evicted.Key)
	}
}

func TestMemory_OverCapacity(t *testing.T) {
	m := NewMemory(2)

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("k%d", i)
		if err := m.Set(newEntry(key, []byte(key), time.Hour)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if !m.OverCapacity() {
		t.Error("expected tier over capacity after third insert")
	}
	if _, ok := m.EvictOldest(); !ok {
		t.Fatal("expected an eviction")
	}
	if m.OverCapacity() {
		t.Error("expected tier at capacity after eviction")
	}
}

func TestMemory_SetOverwrite(t *testing.T) {
	m := NewMemory(10)

	if err := m.Set(newEntry("k", []byte("old"), time.Hour)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := m.Set(newEntry("k", []byte("newer"), time.Hour)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	entry, ok := m.Get("k")
	if !ok || string(entry.Data) != "newer" {
		t.Errorf("expected overwrite to win, got %q", entry.Data)
	}
	if m.Len() != 1 {
		t.Errorf("expected single entry, got %d", m.Len())
	}
	if m.SizeBytes() != int64(len("newer")) {
		t.Errorf("size accounting wrong after overwrite: %d", m.SizeBytes())
	}
}

func TestMemory_RemoveAndClear(t *testing.T) {
	m := NewMemory(10)

	_ = m.Set(newEntry("a", []byte("a"), time.Hour))
	_ = m.Set(newEntry("b", []byte("b"), time.Hour))

	m.Remove("a")
	if _, ok := m.Get("a"); ok {
		t.Error("expected a removed")
	}

	m.Clear()
	if m.Len() != 0 || m.SizeBytes() != 0 {
		t.Errorf("expected empty tier after Clear, len=%d size=%d", m.Len(), m.SizeBytes())
	}
}

func TestMemory_Stats(t *testing.T) {
	m := NewMemory(4)
	_ = m.Set(newEntry("a", []byte("aa"), time.Hour))
	_ = m.Set(newEntry("b", []byte("bb"), time.Hour))

	stats := m.Stats()
	if stats.Entries != 2 {
		t.Errorf("expected 2 entries, got %d", stats.Entries)
	}
	if stats.Capacity != 4 {
		t.Errorf("expected capacity 4, got %d", stats.Capacity)
	}
	if stats.Utilization != 0.5 {
		t.Errorf("expected utilization 0.5, got %f", stats.Utilization)
	}
	if stats.SizeBytes != 4 {
		t.Errorf("expected 4 bytes, got %d", stats.SizeBytes)
	}
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	m := NewMemory(100)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%50)
				_ = m.Set(newEntry(key, []byte("v"), time.Hour))
				m.Get(key)
				if j%10 == 0 {
					m.EvictOldest()
				}
			}
		}(i)
	}
	wg.Wait()

	if m.Len() > 100 {
		t.Errorf("tier grew past bookkeeping expectations: %d", m.Len())
	}
}
