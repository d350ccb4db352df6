// Package cachify implements the composite L1/L2 cache orchestrator: a
// fail-safe, stampede-protected, backplane-invalidated cache facade over a
// pair of Store collaborators.
package cachify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/cachify/pkg/backplane"
	"github.com/Sternrassler/cachify/pkg/store"
)

// FactoryFunc computes a fresh value for GetOrSet on cache miss or
// expiration.
type FactoryFunc func(ctx context.Context) ([]byte, error)

// Config configures a new Orchestrator. L1 and L2 are required
// collaborators; everything else has a usable default.
type Config struct {
	L1 store.Store
	L2 store.Store

	Options Options

	// Backplane, when set, wires outbound invalidation publishing and
	// inbound subscription for cross-instance L1 eviction.
	Backplane *BackplaneWiring

	Logger zerolog.Logger

	// PoolWorkers/PoolQueueSize size the bounded background-refresh
	// worker pool. Zero selects sane defaults.
	PoolWorkers   int
	PoolQueueSize int
}

// BackplaneWiring connects an Orchestrator to a backplane.Publisher and/or
// backplane.Subscriber. Either may be nil.
type BackplaneWiring struct {
	Publisher  backplane.Publisher
	Subscriber backplane.Subscriber
}

// Orchestrator is the composite cache facade: L1 (fast, local) plus L2
// (authoritative, distributed), with fail-safe staleness, stampede
// coalescing, timeout-bounded refresh, and backplane-driven L1 eviction.
type Orchestrator struct {
	l1 store.Store
	l2 store.Store

	opts   Options
	logger zerolog.Logger

	publisher backplane.Publisher
	group     singleflight.Group
	pool      *refreshPool
	counters  instanceCounters
}

// New constructs an Orchestrator. L1 and L2 must be non-nil.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.L1 == nil || cfg.L2 == nil {
		return nil, errors.New("cachify: L1 and L2 stores are required")
	}
	if cfg.Options.Clock == nil {
		cfg.Options.Clock = RealClock
	}

	o := &Orchestrator{
		l1:     cfg.L1,
		l2:     cfg.L2,
		opts:   cfg.Options,
		logger: cfg.Logger,
		pool:   newRefreshPool(cfg.PoolWorkers, cfg.PoolQueueSize),
	}

	if cfg.Backplane != nil {
		o.publisher = cfg.Backplane.Publisher
		if cfg.Backplane.Subscriber != nil {
			if _, err := cfg.Backplane.Subscriber.Subscribe(o.handleInvalidation); err != nil {
				return nil, fmt.Errorf("cachify: subscribe to backplane: %w", err)
			}
		}
	}

	return o, nil
}

// Close releases the background-refresh worker pool. It does not close L1,
// L2, or the backplane collaborators, which the caller owns.
func (o *Orchestrator) Close() {
	o.pool.Close()
}

// Get consults L1 then L2. A nil *Result with a nil error means the key is
// missing, a normal outcome rather than a failure.
func (o *Orchestrator) Get(ctx context.Context, key string) (*Result, error) {
	start := time.Now()
	defer func() {
		cacheGetDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	}()

	ro := resolveEntryOptions(o.opts, nil)
	fullKey := buildKey(ro.keyPrefix, "", key)
	now := o.opts.Clock.Now()

	l1Payload, l1PayloadErr := o.l1.Get(ctx, fullKey)
	l1Found := l1PayloadErr == nil
	var l1Meta *Metadata
	if metaBytes, err := o.l1.Get(ctx, metaKey(fullKey)); err == nil {
		if m, decErr := unmarshalMetadata(metaBytes); decErr == nil {
			l1Meta = m
		}
	}
	l1State := StateAt(now, l1Meta, l1Found)

	if l1State == StateFresh {
		o.recordHit("L1")
		return &Result{Value: l1Payload}, nil
	}

	var staleCandidate *Result
	if l1State == StateStale {
		staleCandidate = &Result{Value: l1Payload, Stale: true, StaleReason: StaleReasonExpired}
	}

	l2Payload, l2Found, l2Meta, l2Err := o.readL2(ctx, fullKey)
	if l2Err != nil {
		o.logger.Warn().Err(l2Err).Str("key", fullKey).Msg("L2 read failed")
		if staleCandidate != nil {
			staleCandidate.StaleReason = StaleReasonL2Failure
			o.recordStaleHit()
			return staleCandidate, nil
		}
		if o.opts.FailFastOnL2Errors {
			return nil, l2Err
		}
		o.recordMiss()
		return nil, nil
	}

	l2State := StateAt(now, l2Meta, l2Found)
	switch l2State {
	case StateFresh:
		o.recordHit("L2")
		o.refillL1(ctx, fullKey, l2Payload, l2Meta, now)
		return &Result{Value: l2Payload}, nil
	case StateStale:
		if staleCandidate == nil {
			staleCandidate = &Result{Value: l2Payload, Stale: true, StaleReason: StaleReasonExpired}
		}
	}

	if staleCandidate != nil {
		o.recordStaleHit()
		return staleCandidate, nil
	}

	o.recordMiss()
	return nil, nil
}

func (o *Orchestrator) readL2(ctx context.Context, fullKey string) (payload []byte, found bool, meta *Metadata, err error) {
	payload, getErr := o.l2.Get(ctx, fullKey)
	switch {
	case getErr == nil:
		found = true
	case errors.Is(getErr, store.ErrNotFound):
		found = false
	default:
		return nil, false, nil, getErr
	}

	if metaBytes, mErr := o.l2.Get(ctx, metaKey(fullKey)); mErr == nil {
		if m, decErr := unmarshalMetadata(metaBytes); decErr == nil {
			meta = m
		}
	}
	return payload, found, meta, nil
}

// refillL1 copies an L2 hit back into L1, using the remaining fail-safe
// window as the L1 TTL. A non-positive remaining window skips the refill.
func (o *Orchestrator) refillL1(ctx context.Context, fullKey string, payload []byte, meta *Metadata, now time.Time) {
	if meta == nil {
		_ = o.l1.Set(ctx, fullKey, payload, 0)
		return
	}
	remaining := meta.FailSafeUntil.Sub(now)
	if remaining <= 0 {
		return
	}
	_ = o.l1.Set(ctx, fullKey, payload, remaining)
	if metaBytes, err := meta.marshal(); err == nil {
		_ = o.l1.Set(ctx, metaKey(fullKey), metaBytes, remaining)
	}
}

// Set computes metadata, writes payload and metadata to L2 then L1, and
// publishes an invalidation to the backplane.
func (o *Orchestrator) Set(ctx context.Context, key string, value []byte, opts *EntryOptions) error {
	ro := resolveEntryOptions(o.opts, opts)
	fullKey := buildKey(ro.keyPrefix, "", key)
	now := o.opts.Clock.Now()

	ttl := jitteredTTL(ro.ttl, ro.jitterRatio)
	meta := &Metadata{
		CreatedAt:         now,
		LogicalExpiration: now.Add(ttl),
		FailSafeUntil:     now.Add(ttl).Add(ro.resilience.FailSafeMaxDuration),
	}
	storageTTL := ttl + ro.resilience.FailSafeMaxDuration

	metaBytes, err := meta.marshal()
	if err != nil {
		return &Error{Kind: KindSerializationFailure, Message: "encode entry metadata", Err: err}
	}

	var propagate error
	if err := o.l2.Set(ctx, fullKey, value, storageTTL); err != nil {
		o.logger.Warn().Err(err).Str("key", fullKey).Msg("L2 write failed")
		if o.opts.FailFastOnL2Errors {
			propagate = err
		}
	} else if err := o.l2.Set(ctx, metaKey(fullKey), metaBytes, storageTTL); err != nil {
		o.logger.Warn().Err(err).Str("key", fullKey).Msg("L2 metadata write failed")
		if o.opts.FailFastOnL2Errors {
			propagate = err
		}
	}

	if err := o.l1.Set(ctx, fullKey, value, storageTTL); err != nil {
		o.logger.Warn().Err(err).Str("key", fullKey).Msg("L1 write failed")
	}
	if err := o.l1.Set(ctx, metaKey(fullKey), metaBytes, storageTTL); err != nil {
		o.logger.Warn().Err(err).Str("key", fullKey).Msg("L1 metadata write failed")
	}

	o.publishInvalidation(ctx, backplane.Event{Key: fullKey})
	cacheSetTotal.Inc()
	o.counters.sets.Add(1)

	return propagate
}

// Remove deletes payload and metadata from both tiers and publishes an
// invalidation.
func (o *Orchestrator) Remove(ctx context.Context, key string) error {
	ro := resolveEntryOptions(o.opts, nil)
	fullKey := buildKey(ro.keyPrefix, "", key)

	var propagate error
	if err := o.l2.Remove(ctx, fullKey); err != nil {
		o.logger.Warn().Err(err).Str("key", fullKey).Msg("L2 remove failed")
		propagate = err
	}
	_ = o.l2.Remove(ctx, metaKey(fullKey))
	_ = o.l1.Remove(ctx, fullKey)
	_ = o.l1.Remove(ctx, metaKey(fullKey))

	o.publishInvalidation(ctx, backplane.Event{Key: fullKey})
	cacheRemoveTotal.Inc()
	o.counters.removes.Add(1)

	return propagate
}

// GetOrSet returns a fresh value if one exists; otherwise it coalesces
// concurrent callers into a single factory execution bounded by the
// resolved resilience policy, falling back to a stale candidate when the
// factory times out, fails, or a soft timeout elapses first.
func (o *Orchestrator) GetOrSet(ctx context.Context, key string, factory FactoryFunc, opts *EntryOptions) (*Result, error) {
	if factory == nil {
		return nil, ErrGetOrSetNilFactory
	}
	ro := resolveEntryOptions(o.opts, opts)

	res, _ := o.Get(ctx, key)
	if res != nil && !res.Stale {
		return res, nil
	}
	staleCandidate := res

	ch := o.startRefresh(key, factory, ro)

	var softC <-chan time.Time
	if staleCandidate != nil && ro.resilience.SoftTimeout != nil {
		timer := time.NewTimer(*ro.resilience.SoftTimeout)
		defer timer.Stop()
		softC = timer.C
	}

	select {
	case sfRes := <-ch:
		if sfRes.Err != nil {
			return o.handleRefreshFailure(sfRes.Err, staleCandidate, key, factory, ro)
		}
		return &Result{Value: sfRes.Val.([]byte)}, nil

	case <-softC:
		factoryTimeoutSoftCount.Inc()
		o.counters.softTimeouts.Add(1)
		staleCandidate.StaleReason = StaleReasonSoftTimeout
		o.counters.staleServed.Add(1)
		if ro.resilience.EnableBackgroundRefresh {
			o.scheduleBackgroundRefresh(key, factory, ro)
		}
		return staleCandidate, nil

	case <-ctx.Done():
		if staleCandidate != nil {
			return staleCandidate, nil
		}
		return nil, ctx.Err()
	}
}

func (o *Orchestrator) handleRefreshFailure(err error, staleCandidate *Result, key string, factory FactoryFunc, ro resolvedEntryOptions) (*Result, error) {
	reason := StaleReasonFactoryFailure
	if errors.Is(err, ErrHardTimeout) {
		factoryTimeoutHardCount.Inc()
		o.counters.hardTimeouts.Add(1)
		reason = StaleReasonHardTimeout
	}

	if staleCandidate == nil {
		return nil, err
	}

	staleCandidate.StaleReason = reason
	failsafeUsedCount.Inc()
	o.counters.failsafeUsed.Add(1)

	if ro.resilience.EnableBackgroundRefresh {
		o.scheduleBackgroundRefresh(key, factory, ro)
	}
	return staleCandidate, nil
}

// startRefresh coalesces concurrent callers for key into a single factory
// execution via singleflight; the shared task runs on a background-rooted
// context so no individual caller's cancellation can abort it.
func (o *Orchestrator) startRefresh(key string, factory FactoryFunc, ro resolvedEntryOptions) <-chan singleflight.Result {
	return o.group.DoChan(key, func() (interface{}, error) {
		return o.executeFactory(key, factory, ro)
	})
}

func (o *Orchestrator) executeFactory(key string, factory FactoryFunc, ro resolvedEntryOptions) ([]byte, error) {
	taskCtx := context.Background()

	// Re-read under the lock to avoid a duplicate factory run against a
	// value another caller already refreshed while this task waited its
	// turn in the singleflight group.
	if existing, err := o.Get(taskCtx, key); err == nil && existing != nil && !existing.Stale {
		return existing.Value, nil
	}

	factoryCtx := taskCtx
	if ro.resilience.HardTimeout != nil {
		var cancel context.CancelFunc
		factoryCtx, cancel = context.WithTimeout(taskCtx, *ro.resilience.HardTimeout)
		defer cancel()
	}

	value, err := factory(factoryCtx)
	if err != nil {
		if factoryCtx.Err() == context.DeadlineExceeded {
			return nil, newHardTimeoutError(err)
		}
		return nil, newFactoryFailureError(err)
	}

	if err := o.Set(taskCtx, key, value, ro.asEntryOptions()); err != nil {
		o.logger.Warn().Err(err).Str("key", key).Msg("failed to persist refreshed value")
	}
	return value, nil
}

func (o *Orchestrator) scheduleBackgroundRefresh(key string, factory FactoryFunc, ro resolvedEntryOptions) {
	submitted := o.pool.Submit(func() {
		res := <-o.startRefresh(key, factory, ro)
		if res.Err != nil {
			o.logger.Warn().Err(res.Err).Str("key", key).Msg("background refresh failed")
		}
	})
	if !submitted {
		o.logger.Warn().Str("key", key).Msg("background refresh pool full, dropping refresh")
	}
}

func (o *Orchestrator) publishInvalidation(ctx context.Context, evt backplane.Event) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, evt); err != nil {
		o.logger.Warn().Err(err).Msg("backplane publish failed")
	}
}

// handleInvalidation is registered with the backplane subscriber. On a key
// invalidation it evicts L1 only; L2 is never touched on receipt, and a
// tag invalidation is counted and logged, never scan-evicted.
func (o *Orchestrator) handleInvalidation(evt backplane.Event) {
	ctx := context.Background()
	if evt.Key != "" {
		_ = o.l1.Remove(ctx, evt.Key)
		_ = o.l1.Remove(ctx, metaKey(evt.Key))
		return
	}
	if evt.Tag != "" {
		tagInvalidationsTotal.Inc()
		o.logger.Info().Str("tag", evt.Tag).Msg("received tag invalidation; no scan-based eviction performed")
	}
}

func (o *Orchestrator) recordHit(layer string) {
	cacheHitTotal.WithLabelValues(layer).Inc()
	o.counters.hits.Add(1)
}

func (o *Orchestrator) recordStaleHit() {
	cacheHitTotal.WithLabelValues("stale").Inc()
	staleServedCount.Inc()
	o.counters.staleServed.Add(1)
}

func (o *Orchestrator) recordMiss() {
	cacheMissTotal.Inc()
	o.counters.misses.Add(1)
}
