package similarity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "similarity_cache_hit_total",
		Help: "Total number of similarity-mode lookups resolved by an exact or near-duplicate hit",
	})

	cacheMissTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "similarity_cache_miss_total",
		Help: "Total number of similarity-mode lookups that found no eligible candidate",
	})

	candidatesCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "similarity_candidates_count",
		Help:    "Number of LSH candidates considered per similarity lookup",
		Buckets: prometheus.LinearBuckets(0, 8, 9),
	})

	bestScoreHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "similarity_best_score_histogram",
		Help:    "Best candidate score observed per similarity lookup",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})
)
