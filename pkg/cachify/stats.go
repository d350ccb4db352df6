package cachify

import "sync/atomic"

// Stats is a cheap, lock-light snapshot of an Orchestrator's counters, for
// local introspection without scraping Prometheus.
type Stats struct {
	Hits         uint64
	Misses       uint64
	StaleServed  uint64
	Sets         uint64
	Removes      uint64
	SoftTimeouts uint64
	HardTimeouts uint64
	FailsafeUsed uint64
}

// instanceCounters backs Stats() for one Orchestrator instance. Prometheus
// counters (see metrics.go) are process-wide and shared across instances;
// these atomics are per-instance so Stats() reflects only this
// Orchestrator's activity.
type instanceCounters struct {
	hits         atomic.Uint64
	misses       atomic.Uint64
	staleServed  atomic.Uint64
	sets         atomic.Uint64
	removes      atomic.Uint64
	softTimeouts atomic.Uint64
	hardTimeouts atomic.Uint64
	failsafeUsed atomic.Uint64
}

func (c *instanceCounters) snapshot() Stats {
	return Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		StaleServed:  c.staleServed.Load(),
		Sets:         c.sets.Load(),
		Removes:      c.removes.Load(),
		SoftTimeouts: c.softTimeouts.Load(),
		HardTimeouts: c.hardTimeouts.Load(),
		FailsafeUsed: c.failsafeUsed.Load(),
	}
}

// Stats returns a snapshot of this Orchestrator's local counters.
func (o *Orchestrator) Stats() Stats {
	return o.counters.snapshot()
}
