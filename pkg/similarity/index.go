package similarity

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry is one indexed request fingerprint plus the metadata needed to
// serve or expire a similarity hit.
type Entry struct {
	Key        string
	Signature  Signature
	TokenCount int
	HashPrefix uint64
	CachedAt   time.Time
	Embedding  []float32
}

// Index is the in-memory LSH-bucketed candidate index: fixed capacity,
// four 16-bit band buckets per entry, evicted LRU-style. A single coarse
// mutex protects all reads and writes, matching the "process-scoped,
// briefly locked" resource model.
type Index struct {
	mu       sync.Mutex
	capacity int
	cache    *lru.Cache[string, *Entry]
	bands    [4]map[uint16]map[string]struct{}
}

// NewIndex creates an Index bounded to capacity entries. capacity <= 0
// selects the 1024-entry default.
func NewIndex(capacity int) (*Index, error) {
	if capacity <= 0 {
		capacity = 1024
	}
	idx := &Index{capacity: capacity}
	for i := range idx.bands {
		idx.bands[i] = make(map[uint16]map[string]struct{})
	}
	c, err := lru.NewWithEvict[string, *Entry](capacity, func(key string, e *Entry) {
		idx.removeFromBandsLocked(key, e.Signature)
	})
	if err != nil {
		return nil, err
	}
	idx.cache = c
	return idx, nil
}

func bandsOf(sig Signature) [4]uint16 {
	s := uint64(sig)
	return [4]uint16{uint16(s), uint16(s >> 16), uint16(s >> 32), uint16(s >> 48)}
}

func (idx *Index) addToBandsLocked(key string, sig Signature) {
	for i, band := range bandsOf(sig) {
		bucket, ok := idx.bands[i][band]
		if !ok {
			bucket = make(map[string]struct{})
			idx.bands[i][band] = bucket
		}
		bucket[key] = struct{}{}
	}
}

func (idx *Index) removeFromBandsLocked(key string, sig Signature) {
	for i, band := range bandsOf(sig) {
		bucket, ok := idx.bands[i][band]
		if !ok {
			continue
		}
		delete(bucket, key)
		if len(bucket) == 0 {
			delete(idx.bands[i], band)
		}
	}
}

// AddOrUpdate inserts entry, moving it to the front of the LRU. If key
// already exists, its old buckets are vacated first. Inserting past
// capacity evicts the LRU tail.
func (idx *Index) AddOrUpdate(e *Entry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if old, ok := idx.cache.Peek(e.Key); ok {
		idx.removeFromBandsLocked(e.Key, old.Signature)
	}
	idx.cache.Add(e.Key, e)
	idx.addToBandsLocked(e.Key, e.Signature)
}

// GetCandidates returns up to max entries sharing at least one LSH band
// with signature, deduplicated.
func (idx *Index) GetCandidates(signature Signature, max int) []*Entry {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	seen := make(map[string]struct{})
	var candidates []*Entry
	for i, band := range bandsOf(signature) {
		for key := range idx.bands[i][band] {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if e, ok := idx.cache.Peek(key); ok {
				candidates = append(candidates, e)
				if max > 0 && len(candidates) >= max {
					return candidates
				}
			}
		}
	}
	return candidates
}

// Remove deletes key from its band buckets and the LRU.
func (idx *Index) Remove(key string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if e, ok := idx.cache.Peek(key); ok {
		idx.removeFromBandsLocked(key, e.Signature)
	}
	idx.cache.Remove(key)
}

// Len reports the number of entries currently indexed.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.cache.Len()
}
