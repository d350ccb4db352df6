package cachify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hit_total",
			Help: "Total number of cache hits by layer",
		},
		[]string{"layer"}, // L1, L2, stale
	)

	cacheMissTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_miss_total",
		Help: "Total number of cache misses",
	})

	cacheSetTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_set_total",
		Help: "Total number of Set operations",
	})

	cacheRemoveTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_remove_total",
		Help: "Total number of Remove operations",
	})

	staleServedCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stale_served_count",
		Help: "Total number of reads served from a stale candidate",
	})

	factoryTimeoutSoftCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factory_timeout_soft_count",
		Help: "Total number of GetOrSet calls that returned stale due to a soft timeout",
	})

	factoryTimeoutHardCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factory_timeout_hard_count",
		Help: "Total number of factory executions canceled by a hard timeout",
	})

	failsafeUsedCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "failsafe_used_count",
		Help: "Total number of times a stale value was returned as a fail-safe fallback",
	})

	tagInvalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backplane_tag_invalidations_total",
		Help: "Total number of tag-based backplane invalidations received (counted only, never scan-evicted)",
	})

	cacheGetDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_get_duration_ms",
		Help:    "Duration of Get operations in milliseconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
	})
)
