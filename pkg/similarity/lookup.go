package similarity

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/cachify/pkg/store"
)

// Result is a resolved similarity-mode lookup: the stored response payload
// plus the score it was matched at (1.0 for an exact hit).
type Result struct {
	Key   string
	Value []byte
	Score float64
}

// LookupOptions configures a single Lookup call. Scorer defaults to
// HammingScorer when nil.
type LookupOptions struct {
	MinSimilarity   float64
	MaxEntryAge     time.Duration
	MaxCandidates   int
	Scorer          Scorer
	EmbeddingScorer EmbeddingScorer
	Now             func() time.Time
}

// Lookup implements the exact-then-similarity probe: an exact key hit
// short-circuits at score 1.0; otherwise up to MaxCandidates LSH
// candidates are scored, aged-out entries are evicted from index as they
// are encountered, and the best-scoring survivor at or above MinSimilarity is
// fetched from cache. A candidate whose backing cache entry has vanished
// is dropped from the index and treated as a miss.
func Lookup(ctx context.Context, exactKey string, query Entry, cache store.Store, index *Index, opts LookupOptions) (*Result, error) {
	if val, err := cache.Get(ctx, exactKey); err == nil {
		cacheHitTotal.Inc()
		return &Result{Key: exactKey, Value: val, Score: 1.0}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if opts.MaxCandidates <= 0 {
		cacheMissTotal.Inc()
		return nil, nil
	}

	scorer := opts.Scorer
	if scorer == nil {
		scorer = HammingScorer{}
	}
	now := time.Now()
	if opts.Now != nil {
		now = opts.Now()
	}

	candidates := index.GetCandidates(query.Signature, opts.MaxCandidates)
	candidatesCount.Observe(float64(len(candidates)))

	var best *Entry
	bestScore := 0.0
	for _, candidate := range candidates {
		if opts.MaxEntryAge > 0 && now.Sub(candidate.CachedAt) > opts.MaxEntryAge {
			index.Remove(candidate.Key)
			continue
		}
		score := resolveScore(query, *candidate, opts.EmbeddingScorer, scorer)
		if best == nil || score > bestScore {
			best, bestScore = candidate, score
		}
	}

	if best == nil || bestScore < opts.MinSimilarity {
		cacheMissTotal.Inc()
		return nil, nil
	}
	bestScoreHistogram.Observe(bestScore)

	val, err := cache.Get(ctx, best.Key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			index.Remove(best.Key)
			cacheMissTotal.Inc()
			return nil, nil
		}
		return nil, err
	}

	cacheHitTotal.Inc()
	return &Result{Key: best.Key, Value: val, Score: bestScore}, nil
}
