package reqcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/cachify/pkg/cachify"
	"github.com/Sternrassler/cachify/pkg/similarity"
	"github.com/Sternrassler/cachify/pkg/store"
)

// storedEntry is the JSON-encoded payload persisted for a cached response.
type storedEntry struct {
	StatusCode  int           `json:"status_code"`
	Body        []byte        `json:"body"`
	Headers     http.Header   `json:"headers"`
	ContentType string        `json:"content_type"`
	CachedAt    time.Time     `json:"cached_at"`
	Duration    time.Duration `json:"duration"`
}

func (e *storedEntry) stale(now time.Time) bool {
	return now.After(e.CachedAt.Add(e.Duration))
}

// Config configures a Middleware.
type Config struct {
	Cache  Cache
	Policy Policy

	// Index enables similarity mode when Policy.Mode is ModeSimilarity.
	Index *similarity.Index

	IgnoredJSONFields map[string]struct{}
	MinSimilarity     float64
	MaxEntryAge       time.Duration
	MaxCandidates     int
	MaxCanonicalLen   int

	Logger zerolog.Logger
	Now    func() time.Time
}

// Cache is the subset of cachify.Orchestrator the middleware depends on.
type Cache interface {
	Get(ctx context.Context, key string) (*cachify.Result, error)
	Set(ctx context.Context, key string, value []byte, opts *cachify.EntryOptions) error
}

// Middleware implements the request-cache workflow described in the
// orchestrator's HTTP surface: eligibility filtering, canonical key
// derivation, response buffering, and hit rendering.
type Middleware struct {
	cache             Cache
	policy            Policy
	index             *similarity.Index
	ignoredJSONFields map[string]struct{}
	minSimilarity     float64
	maxEntryAge       time.Duration
	maxCandidates     int
	maxCanonicalLen   int
	logger            zerolog.Logger
	now               func() time.Time
}

// New constructs a Middleware from cfg.
func New(cfg Config) *Middleware {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ignored := cfg.IgnoredJSONFields
	if ignored == nil {
		ignored = similarity.DefaultIgnoredJSONFields()
	}
	minSimilarity := cfg.MinSimilarity
	if minSimilarity <= 0 {
		minSimilarity = 0.95
	}
	maxCandidates := cfg.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 64
	}
	maxEntryAge := cfg.MaxEntryAge
	if maxEntryAge <= 0 {
		maxEntryAge = 10 * time.Minute
	}
	maxCanonicalLen := cfg.MaxCanonicalLen
	if maxCanonicalLen <= 0 {
		maxCanonicalLen = 16 << 10
	}

	return &Middleware{
		cache:             cfg.Cache,
		policy:            cfg.Policy,
		index:             cfg.Index,
		ignoredJSONFields: ignored,
		minSimilarity:     minSimilarity,
		maxEntryAge:       maxEntryAge,
		maxCandidates:     maxCandidates,
		maxCanonicalLen:   maxCanonicalLen,
		logger:            cfg.Logger,
		now:               now,
	}
}

type contextKey int

const processedKey contextKey = iota

// Wrap returns next fronted by the request-cache workflow.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Context().Value(processedKey) != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), processedKey, true)
		r = r.WithContext(ctx)

		if !eligible(r, m.policy) {
			requestsTotal.WithLabelValues("bypass").Inc()
			next.ServeHTTP(w, r)
			return
		}

		var bodyHash string
		if m.policy.IncludeBody {
			hash, err := hashRequestBody(r, m.policy.MaxRequestBodySizeBytes)
			if err != nil {
				bodyTooLargeTotal.Inc()
				requestsTotal.WithLabelValues("bypass").Inc()
				next.ServeHTTP(w, r)
				return
			}
			bodyHash = hash
		}

		exactKey := ExactKey(r, m.policy.VaryByHeaders, true, bodyHash)

		if m.policy.Mode == ModeSimilarity && m.index != nil {
			m.serveSimilarity(w, r, next, exactKey, bodyHash)
			return
		}
		m.serveExact(w, r, next, exactKey)
	})
}

func (m *Middleware) serveExact(w http.ResponseWriter, r *http.Request, next http.Handler, key string) {
	if res, err := m.cache.Get(r.Context(), key); err == nil && res != nil {
		entry, decErr := decodeEntry(res.Value)
		if decErr == nil {
			requestsTotal.WithLabelValues(hitOutcome(entry.stale(m.now()))).Inc()
			m.renderHit(w, r, entry, key, nil)
			return
		}
	}

	requestsTotal.WithLabelValues("miss").Inc()
	m.serveMissAndStore(w, r, next, key, nil)
}

func (m *Middleware) serveSimilarity(w http.ResponseWriter, r *http.Request, next http.Handler, exactKey string, bodyHash string) {
	body, canonical, err := m.canonicalizeRequest(r)
	if err != nil || len(canonical) > m.maxCanonicalLen {
		requestsTotal.WithLabelValues("bypass").Inc()
		restoreBody(r, body)
		next.ServeHTTP(w, r)
		return
	}
	restoreBody(r, body)

	// The similarity-mode key hashes the exact-mode material plus the
	// canonicalized body, so requests with different payloads never share
	// an exact-probe entry.
	sum := sha256.Sum256([]byte(canonicalKeyMaterial(r, m.policy.VaryByHeaders, true, canonical)))
	simKey := keyPrefix + "sim:" + hex.EncodeToString(sum[:])

	sig, tokenCount := similarity.ComputeSignature(canonical, 512)
	adapter := &cacheStoreAdapter{cache: m.cache}

	result, err := similarity.Lookup(r.Context(), simKey, similarity.Entry{Signature: sig}, adapter, m.index, similarity.LookupOptions{
		MinSimilarity: m.minSimilarity,
		MaxEntryAge:   m.maxEntryAge,
		MaxCandidates: m.maxCandidates,
		Now:           m.now,
	})
	if err == nil && result != nil {
		entry, decErr := decodeEntry(result.Value)
		if decErr == nil {
			score := result.Score
			requestsTotal.WithLabelValues(hitOutcome(entry.stale(m.now()))).Inc()
			m.renderHit(w, r, entry, result.Key, &score)
			return
		}
	}

	requestsTotal.WithLabelValues("miss").Inc()
	m.serveMissAndStore(w, r, next, simKey, &similarityWriteBack{signature: sig, tokenCount: tokenCount})
}

type similarityWriteBack struct {
	signature  similarity.Signature
	tokenCount int
}

func (m *Middleware) serveMissAndStore(w http.ResponseWriter, r *http.Request, next http.Handler, key string, wb *similarityWriteBack) {
	buf := newBufferingWriter(w, m.policy.MaxResponseBodySizeBytes)
	if m.policy.ResponseHeaders.Enabled {
		buf.Header().Set(m.policy.ResponseHeaders.CacheStatusHeader, "MISS")
		buf.Header().Set(m.policy.ResponseHeaders.CacheStaleHeader, "false")
	}

	next.ServeHTTP(buf, r)

	if buf.Overflowed() {
		responseOverflowTotal.Inc()
		return
	}
	if !responseCacheable(buf.StatusCode(), buf.Header(), m.policy) {
		return
	}

	entry := &storedEntry{
		StatusCode:  buf.StatusCode(),
		Body:        append([]byte(nil), buf.Body()...),
		Headers:     filterStorableHeaders(buf.Header()),
		ContentType: buf.Header().Get("Content-Type"),
		CachedAt:    m.now(),
		Duration:    m.policy.DefaultDuration,
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to encode response cache entry")
		return
	}

	if err := m.cache.Set(r.Context(), key, encoded, &cachify.EntryOptions{TTL: m.policy.DefaultDuration}); err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("failed to store response cache entry")
		return
	}

	if wb != nil && m.index != nil {
		m.index.AddOrUpdate(&similarity.Entry{
			Key:        key,
			Signature:  wb.signature,
			TokenCount: wb.tokenCount,
			CachedAt:   entry.CachedAt,
		})
	}
}

func (m *Middleware) renderHit(w http.ResponseWriter, r *http.Request, entry *storedEntry, key string, score *float64) {
	for k, v := range entry.Headers {
		w.Header()[k] = v
	}
	// Metadata headers go on after the stored ones, so the MISS headers
	// captured when the entry was stored never override them.
	if m.policy.ResponseHeaders.Enabled {
		m.emitMetadataHeaders(w, entry, key, score)
	}
	if entry.ContentType != "" {
		w.Header().Set("Content-Type", entry.ContentType)
	}
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(entry.Body)))
	w.WriteHeader(entry.StatusCode)
	if r.Method != http.MethodHead {
		_, _ = w.Write(entry.Body)
	}
}

func (m *Middleware) emitMetadataHeaders(w http.ResponseWriter, entry *storedEntry, key string, score *float64) {
	h := m.policy.ResponseHeaders
	w.Header().Set(h.CacheStatusHeader, "HIT")
	w.Header().Set(h.CacheStaleHeader, boolString(entry.stale(m.now())))
	if score != nil {
		w.Header().Set(h.SimilarityHeader, fmt.Sprintf("%.3f", *score))
	}
	if h.IncludeCacheKey {
		w.Header().Set(h.CacheKeyHeader, key)
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func hitOutcome(stale bool) string {
	if stale {
		return "stale"
	}
	return "hit"
}

func decodeEntry(payload []byte) (*storedEntry, error) {
	var entry storedEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (m *Middleware) canonicalizeRequest(r *http.Request) ([]byte, string, error) {
	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, m.policy.MaxRequestBodySizeBytes+1))
		if err != nil {
			return nil, "", err
		}
	}
	canonical, err := similarity.Canonicalize(r.Header.Get("Content-Type"), body, m.ignoredJSONFields)
	return body, canonical, err
}

func restoreBody(r *http.Request, body []byte) {
	r.Body = io.NopCloser(bytes.NewReader(body))
}

// cacheStoreAdapter satisfies store.Store on top of the narrower Cache
// interface, so pkg/similarity's Lookup can read/probe the same
// orchestrator-backed cache reqcache uses for exact-mode entries.
type cacheStoreAdapter struct {
	cache Cache
}

func (a *cacheStoreAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := a.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, store.ErrNotFound
	}
	return res.Value, nil
}

func (a *cacheStoreAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return a.cache.Set(ctx, key, value, &cachify.EntryOptions{TTL: ttl})
}

func (a *cacheStoreAdapter) Remove(ctx context.Context, key string) error {
	return nil
}
