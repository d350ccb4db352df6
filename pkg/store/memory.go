package store

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	memoryEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "store_l1_evictions_total",
		Help: "Total number of entries dropped from the L1 memory store, by LRU pressure, TTL expiry, or explicit Remove",
	})

	memoryEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "store_l1_entries",
		Help: "Current number of entries held in the L1 memory store",
	})
)

type memoryEntry struct {
	value   []byte
	expires time.Time // zero means no expiry
	sliding time.Duration
	touchAt time.Time
}

// MemoryStore is the L1 collaborator: a byte-addressed map with TTL and
// optional sliding expiration, bounded by an LRU capacity. Callers get no
// atomicity guarantees across keys.
type MemoryStore struct {
	mu       sync.Mutex
	cache    *lru.Cache[string, *memoryEntry]
	capacity int
}

// NewMemoryStore creates an L1 store bounded to capacity entries. capacity
// <= 0 selects the 10,000-entry default.
func NewMemoryStore(capacity int) (*MemoryStore, error) {
	if capacity <= 0 {
		capacity = 10_000
	}
	c, err := lru.NewWithEvict[string, *memoryEntry](capacity, func(_ string, _ *memoryEntry) {
		memoryEvictionsTotal.Inc()
	})
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: c, capacity: capacity}, nil
}

// Get returns the value for key, or ErrNotFound if absent or expired. A
// sliding-expiration entry has its window pushed forward on every hit.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}

	now := time.Now()
	if !entry.expires.IsZero() && now.After(entry.expires) {
		m.cache.Remove(key)
		memoryEntries.Set(float64(m.cache.Len()))
		return nil, ErrNotFound
	}

	if entry.sliding > 0 {
		entry.expires = now.Add(entry.sliding)
		entry.touchAt = now
	}

	return entry.value, nil
}

// Set stores value under key with the given ttl (zero means no expiry).
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return m.setSliding(key, value, ttl, 0)
}

// SetSliding stores value under key with a sliding expiration window: every
// Get resets the window to sliding from the moment of access.
func (m *MemoryStore) SetSliding(key string, value []byte, sliding time.Duration) error {
	return m.setSliding(key, value, sliding, sliding)
}

func (m *MemoryStore) setSliding(key string, value []byte, ttl, sliding time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	entry := &memoryEntry{value: value, sliding: sliding, touchAt: now}
	if ttl > 0 {
		entry.expires = now.Add(ttl)
	}

	m.cache.Add(key, entry)
	memoryEntries.Set(float64(m.cache.Len()))
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.Remove(key)
	memoryEntries.Set(float64(m.cache.Len()))
	return nil
}

// Len reports the current number of live entries, including ones that have
// expired but have not yet been touched or evicted.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.Len()
}
