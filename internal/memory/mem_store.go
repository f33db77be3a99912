package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-process Store with an optional total byte quota.
// The server falls back to it when Redis is unreachable.
type MemStore struct {
	mu         sync.RWMutex
	data       map[string][]byte
	quotaBytes int
	used       int
}

// NewMemStore creates an in-memory store; quotaBytes of zero means unlimited
func NewMemStore(quotaBytes int) *MemStore {
	return &MemStore{
		data:       make(map[string][]byte),
		quotaBytes: quotaBytes,
	}
}

func (m *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := len(key) + len(value)
	old, exists := m.data[key]
	used := m.used + size
	if exists {
		used -= len(key) + len(old)
	}
	if m.quotaBytes > 0 && used > m.quotaBytes {
		return fmt.Errorf("writing %s needs %d of %d bytes: %w", key, used, m.quotaBytes, ErrQuotaExceeded)
	}
	m.data[key] = append([]byte(nil), value...)
	m.used = used
	return nil
}

func (m *MemStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			m.used -= len(k) + len(v)
			delete(m.data, k)
		}
	}
	return nil
}

func (m *MemStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored keys
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
