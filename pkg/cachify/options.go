package cachify

import (
	"math/rand"
	"time"
)

// ResilienceOptions controls the failure-tolerant behavior of GetOrSet.
type ResilienceOptions struct {
	// FailSafeMaxDuration extends the storage TTL past logical expiration;
	// during this window a stale value is still eligible as a fallback.
	FailSafeMaxDuration time.Duration

	// SoftTimeout, when set, lets a GetOrSet caller return a stale value
	// early while the shared refresh task keeps running in the background.
	SoftTimeout *time.Duration

	// HardTimeout, when set, cancels the factory once elapsed.
	HardTimeout *time.Duration

	// EnableBackgroundRefresh controls whether a soft/hard timeout or
	// factory failure schedules a detached refresh attempt. Default true.
	EnableBackgroundRefresh bool
}

// DefaultResilienceOptions returns the resilience defaults: no fail-safe
// window, no timeouts, background refresh enabled.
func DefaultResilienceOptions() ResilienceOptions {
	return ResilienceOptions{
		FailSafeMaxDuration:     0,
		EnableBackgroundRefresh: true,
	}
}

// EntryOptions controls a single Set or GetOrSet call. Any zero-valued
// field defers to the orchestrator's global Options.
type EntryOptions struct {
	TTL               time.Duration
	SlidingExpiration *time.Duration
	JitterRatio       *float64
	NegativeCacheTTL  *time.Duration
	KeyPrefix         string
	SerializerName    string
	Resilience        *ResilienceOptions
}

// Options configures a composite Orchestrator instance.
type Options struct {
	// KeyPrefix is prepended to every cache key.
	KeyPrefix string

	// DefaultTTL is used when a per-entry TTL is absent.
	DefaultTTL time.Duration

	// JitterRatio in [0, 1) perturbs the stored TTL multiplicatively.
	JitterRatio float64

	// FailFastOnL2Errors surfaces L2 errors to the caller when no stale
	// candidate is available, instead of silently treating them as miss.
	FailFastOnL2Errors bool

	// Resilience holds the default resilience policy applied when a call
	// does not override it via EntryOptions.Resilience.
	Resilience ResilienceOptions

	// Clock is the injected time source. Defaults to RealClock.
	Clock Clock
}

// DefaultOptions returns conservative orchestrator defaults: no key
// prefix, a 5-minute default TTL, no jitter, fail-soft on L2 errors.
func DefaultOptions() Options {
	return Options{
		DefaultTTL:  5 * time.Minute,
		JitterRatio: 0,
		Resilience:  DefaultResilienceOptions(),
		Clock:       RealClock,
	}
}

// resolvedEntryOptions merges the global Options with a call's EntryOptions
// (which may be nil), applying defaults for anything left unset.
type resolvedEntryOptions struct {
	ttl               time.Duration
	slidingExpiration time.Duration
	jitterRatio       float64
	keyPrefix         string
	resilience        ResilienceOptions
}

// asEntryOptions converts a resolved set of options back into an
// EntryOptions, used when the refresh engine re-invokes Set with the same
// policy that GetOrSet resolved for the caller.
func (r resolvedEntryOptions) asEntryOptions() *EntryOptions {
	jitter := r.jitterRatio
	resilience := r.resilience
	return &EntryOptions{
		TTL:         r.ttl,
		JitterRatio: &jitter,
		KeyPrefix:   r.keyPrefix,
		Resilience:  &resilience,
	}
}

func resolveEntryOptions(global Options, entry *EntryOptions) resolvedEntryOptions {
	r := resolvedEntryOptions{
		ttl:         global.DefaultTTL,
		jitterRatio: global.JitterRatio,
		keyPrefix:   global.KeyPrefix,
		resilience:  global.Resilience,
	}
	if entry == nil {
		return r
	}
	if entry.TTL > 0 {
		r.ttl = entry.TTL
	}
	if entry.SlidingExpiration != nil {
		r.slidingExpiration = *entry.SlidingExpiration
	}
	if entry.JitterRatio != nil {
		r.jitterRatio = *entry.JitterRatio
	}
	if entry.KeyPrefix != "" {
		r.keyPrefix = entry.KeyPrefix
	}
	if entry.Resilience != nil {
		r.resilience = *entry.Resilience
	}
	return r
}

// jitteredTTL multiplies ttl by (1 + U), U uniformly chosen in
// [-ratio, +ratio], and floors the result at 1ms. ratio outside [0, 1) is
// treated as 0 (no jitter).
func jitteredTTL(ttl time.Duration, ratio float64) time.Duration {
	if ttl <= 0 || ratio <= 0 || ratio >= 1 {
		return ttl
	}
	u := (rand.Float64()*2 - 1) * ratio // uniform in [-ratio, +ratio]
	jittered := time.Duration(float64(ttl) * (1 + u))
	if jittered < time.Millisecond {
		jittered = time.Millisecond
	}
	return jittered
}
