package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryCache is the in-process stand-in for RedisCache. Values are stored
// as JSON so callers see the same decoding behavior as with redis.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryCache) SetWithPrefix(_ context.Context, prefix, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	// Expired entries are dropped on write so the map stays bounded by live keys.
	for name, e := range m.entries {
		if !e.expires.After(now) {
			delete(m.entries, name)
		}
	}
	m.entries[prefix+":"+key] = memoryEntry{data: data, expires: now.Add(ttl)}
	return nil
}

func (m *MemoryCache) GetWithPrefix(_ context.Context, prefix, key string, dest interface{}) error {
	m.mu.Lock()
	e, ok := m.entries[prefix+":"+key]
	m.mu.Unlock()
	if !ok || !e.expires.After(m.now()) {
		return ErrCacheMiss
	}
	return json.Unmarshal(e.data, dest)
}
