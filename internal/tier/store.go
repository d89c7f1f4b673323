package tier

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// payloadStore abstracts where a disk tier keeps entry payloads. The file
// store is the normal mode; the memory store backs the same tier logic when
// persistence is disabled.
type payloadStore interface {
	write(name string, data []byte) error
	read(name string) ([]byte, error)
	remove(name string) error
	clear() error
	// exists reports whether a payload is present, used to drop index
	// entries whose files vanished between runs.
	exists(name string) bool
}

// payloadName derives a stable file name from a cache key.
func payloadName(key string) string {
	return fmt.Sprintf("%016x.cache", xxhash.Sum64String(key))
}

type fileStore struct {
	dir string
}

func newFileStore(dir string) (*fileStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create tier directory: %w", err)
	}
	return &fileStore{dir: dir}, nil
}

func (s *fileStore) write(name string, data []byte) error {
	return os.WriteFile(filepath.Join(s.dir, name), data, 0600)
}

func (s *fileStore) read(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.dir, name))
}

func (s *fileStore) remove(name string) error {
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *fileStore) clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".cache" {
			continue
		}
		_ = os.Remove(filepath.Join(s.dir, entry.Name()))
	}
	return nil
}

func (s *fileStore) exists(name string) bool {
	_, err := os.Stat(filepath.Join(s.dir, name))
	return err == nil
}

type memStore struct {
	mu       sync.RWMutex
	payloads map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{payloads: make(map[string][]byte)}
}

func (s *memStore) write(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.payloads[name] = buf
	return nil
}

func (s *memStore) read(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.payloads[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (s *memStore) remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payloads, name)
	return nil
}

func (s *memStore) clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = make(map[string][]byte)
	return nil
}

func (s *memStore) exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.payloads[name]
	return ok
}
