// Package metrics documents the Prometheus metrics cachify exposes. Every
// metric is registered via promauto in the package that owns it
// (pkg/store, pkg/cachify, pkg/backplane, pkg/reqcache, pkg/similarity) to
// keep ownership local and avoid import cycles; this package exists only
// as a single place to look them up.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry cachify's metrics register
// against.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Store Metrics (pkg/store):
//   - store_l1_evictions_total (Counter): L1 entries dropped by capacity
//     eviction, TTL expiry, or explicit Remove
//   - store_l1_entries (Gauge): Current L1 entry count
//   - store_l2_errors_total (Counter): L2 (distributed) store errors
//
// Orchestrator Metrics (pkg/cachify):
//   - cache_hit_total{layer} (Counter): Hits by layer (L1, L2, stale)
//   - cache_miss_total (Counter): Misses on both tiers
//   - cache_set_total (Counter): Set calls
//   - cache_remove_total (Counter): Remove calls
//   - cache_get_duration_ms (Histogram): Get latency (GetOrSet records
//     only its initial Get, not the factory run)
//   - stale_served_count (Counter): Fail-safe stale values served
//   - factory_timeout_soft_count (Counter): Soft-timeout stale fallbacks
//   - factory_timeout_hard_count (Counter): Hard-timeout factory cancellations
//   - failsafe_used_count (Counter): Fail-safe fallback used after a
//     factory failure or timeout
//   - backplane_tag_invalidations_total (Counter): Tag invalidation events
//     received (counted only, never scan-evicted)
//
// Backplane Metrics (pkg/backplane):
//   - backplane_publish_total (Counter): Messages published (a batch
//     counts as one)
//   - backplane_publish_failures_total (Counter): Publish failures
//   - backplane_events_delivered_total (Counter): Events delivered to handlers
//   - backplane_echo_suppressed_total (Counter): Own-origin events suppressed
//   - backplane_messages_dropped_total (Counter): Malformed/undecodable messages dropped
//
// Request-Cache Metrics (pkg/reqcache):
//   - reqcache_requests_total{outcome} (Counter): Requests by outcome
//     (hit, stale, miss, bypass)
//   - reqcache_body_too_large_total (Counter): Requests bypassed for an
//     oversized body
//   - reqcache_response_overflow_total (Counter): Responses too large to
//     cache, served uncached
//
// Similarity Metrics (pkg/similarity):
//   - similarity_cache_hit_total (Counter): Similarity-mode hits
//   - similarity_cache_miss_total (Counter): Similarity-mode misses
//   - similarity_candidates_count (Histogram): Candidate set size per lookup
//   - similarity_best_score_histogram (Histogram): Best similarity score per lookup
//
// Example Prometheus Queries:
//
//   # Cache hit rate across tiers
//   sum(rate(cache_hit_total[5m])) /
//   (sum(rate(cache_hit_total[5m])) + sum(rate(cache_miss_total[5m])))
//
//   # Fail-safe usage rate
//   rate(failsafe_used_count[5m])
//
//   # P95 orchestrator latency
//   histogram_quantile(0.95, rate(cache_get_duration_ms_bucket[5m]))
//
//   # Request-cache hit rate
//   sum(rate(reqcache_requests_total{outcome=~"hit|stale"}[5m])) /
//   sum(rate(reqcache_requests_total[5m]))
//
//   # Similarity-mode collapse rate
//   rate(similarity_cache_hit_total[5m]) /
//   (rate(similarity_cache_hit_total[5m]) + rate(similarity_cache_miss_total[5m]))
