package reqcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reqcache_requests_total",
		Help: "Total number of requests seen by the request-cache middleware, by outcome",
	}, []string{"outcome"}) // hit, miss, stale, bypass

	bodyTooLargeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reqcache_body_too_large_total",
		Help: "Total number of requests whose body exceeded the hash size cap",
	})

	responseOverflowTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reqcache_response_overflow_total",
		Help: "Total number of responses whose buffered body exceeded the response size cap",
	})
)
