package backplane

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backplane_publish_total",
		Help: "Total number of backplane messages published (batches count as one)",
	})

	publishFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backplane_publish_failures_total",
		Help: "Total number of backplane publish failures",
	})

	deliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backplane_events_delivered_total",
		Help: "Total number of backplane events delivered to handlers",
	})

	echoSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backplane_echo_suppressed_total",
		Help: "Total number of backplane messages ignored because they originated locally",
	})

	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backplane_messages_dropped_total",
		Help: "Total number of backplane messages dropped (version mismatch or malformed envelope)",
	})
)
