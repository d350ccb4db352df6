package cachify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/cachify/internal/testutil"
	"github.com/Sternrassler/cachify/pkg/store"
)

func newTestOrchestrator(t *testing.T, clock Clock, opts Options) *Orchestrator {
	t.Helper()

	l1, err := store.NewMemoryStore(100)
	require.NoError(t, err)
	l2, err := store.NewMemoryStore(100)
	require.NoError(t, err)

	opts.Clock = clock
	o, err := New(Config{L1: l1, L2: l2, Options: opts})
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o
}

func TestGet_MissOnEmptyCache(t *testing.T) {
	o := newTestOrchestrator(t, testutil.NewManualClock(time.Now()), DefaultOptions())

	res, err := o.Get(context.Background(), "user:1")
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestSetThenGet_FreshHit(t *testing.T) {
	o := newTestOrchestrator(t, testutil.NewManualClock(time.Now()), DefaultOptions())
	ctx := context.Background()

	require.NoError(t, o.Set(ctx, "user:1", []byte("alice"), &EntryOptions{TTL: time.Minute}))

	res, err := o.Get(ctx, "user:1")
	require.NoError(t, err)
	require.NotNil(t, res)
	require.False(t, res.Stale)
	require.Equal(t, []byte("alice"), res.Value)
}

func TestGet_StaleServedWithinFailSafeWindow(t *testing.T) {
	clock := testutil.NewManualClock(time.Now())
	o := newTestOrchestrator(t, clock, DefaultOptions())
	ctx := context.Background()

	entryOpts := &EntryOptions{
		TTL:        time.Minute,
		Resilience: &ResilienceOptions{FailSafeMaxDuration: time.Hour},
	}
	require.NoError(t, o.Set(ctx, "user:1", []byte("alice"), entryOpts))

	clock.Advance(2 * time.Minute) // past logical expiration, still within fail-safe window

	res, err := o.Get(ctx, "user:1")
	require.NoError(t, err)
	require.NotNil(t, res)
	require.True(t, res.Stale)
	require.Equal(t, StaleReasonExpired, res.StaleReason)
	require.Equal(t, []byte("alice"), res.Value)
}

func TestGet_MissAfterFailSafeWindowElapses(t *testing.T) {
	clock := testutil.NewManualClock(time.Now())
	o := newTestOrchestrator(t, clock, DefaultOptions())
	ctx := context.Background()

	entryOpts := &EntryOptions{
		TTL:        time.Minute,
		Resilience: &ResilienceOptions{FailSafeMaxDuration: time.Hour},
	}
	require.NoError(t, o.Set(ctx, "user:1", []byte("alice"), entryOpts))

	clock.Advance(2 * time.Hour) // past both logical expiration and fail-safe window

	res, err := o.Get(ctx, "user:1")
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestGetOrSet_MissInvokesFactoryOnce(t *testing.T) {
	o := newTestOrchestrator(t, testutil.NewManualClock(time.Now()), DefaultOptions())
	ctx := context.Background()

	var calls atomic.Int32
	factory := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("computed"), nil
	}

	res, err := o.GetOrSet(ctx, "user:1", factory, &EntryOptions{TTL: time.Minute})
	require.NoError(t, err)
	require.Equal(t, []byte("computed"), res.Value)
	require.Equal(t, int32(1), calls.Load())

	res2, err := o.GetOrSet(ctx, "user:1", factory, &EntryOptions{TTL: time.Minute})
	require.NoError(t, err)
	require.Equal(t, []byte("computed"), res2.Value)
	require.Equal(t, int32(1), calls.Load(), "a fresh entry must not re-invoke the factory")
}

func TestGetOrSet_StampedeCoalescesToOneFactoryCall(t *testing.T) {
	o := newTestOrchestrator(t, testutil.NewManualClock(time.Now()), DefaultOptions())
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	factory := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("computed"), nil
	}

	const concurrency = 5
	results := make(chan *Result, concurrency)
	errs := make(chan error, concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			res, err := o.GetOrSet(ctx, "user:1", factory, &EntryOptions{TTL: time.Minute})
			results <- res
			errs <- err
		}()
	}

	time.Sleep(50 * time.Millisecond) // let all goroutines join the in-flight singleflight call
	close(release)

	for i := 0; i < concurrency; i++ {
		require.NoError(t, <-errs)
		res := <-results
		require.Equal(t, []byte("computed"), res.Value)
	}
	require.Equal(t, int32(1), calls.Load(), "concurrent GetOrSet calls for the same key must share one factory execution")
}

func TestGetOrSet_HardTimeoutWithNoStaleReturnsError(t *testing.T) {
	o := newTestOrchestrator(t, testutil.NewManualClock(time.Now()), DefaultOptions())
	ctx := context.Background()

	factory := func(ctx context.Context) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	hardTimeout := 20 * time.Millisecond
	entryOpts := &EntryOptions{
		TTL:        time.Minute,
		Resilience: &ResilienceOptions{HardTimeout: &hardTimeout},
	}

	_, err := o.GetOrSet(ctx, "user:1", factory, entryOpts)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrHardTimeout))
}

func TestGetOrSet_HardTimeoutFallsBackToStale(t *testing.T) {
	clock := testutil.NewManualClock(time.Now())
	o := newTestOrchestrator(t, clock, DefaultOptions())
	ctx := context.Background()

	seedOpts := &EntryOptions{
		TTL:        time.Minute,
		Resilience: &ResilienceOptions{FailSafeMaxDuration: time.Hour},
	}
	require.NoError(t, o.Set(ctx, "user:1", []byte("stale-value"), seedOpts))
	clock.Advance(2 * time.Minute)

	factory := func(ctx context.Context) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	hardTimeout := 20 * time.Millisecond
	entryOpts := &EntryOptions{
		TTL: time.Minute,
		Resilience: &ResilienceOptions{
			FailSafeMaxDuration:     time.Hour,
			HardTimeout:             &hardTimeout,
			EnableBackgroundRefresh: false,
		},
	}

	res, err := o.GetOrSet(ctx, "user:1", factory, entryOpts)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.True(t, res.Stale)
	require.Equal(t, StaleReasonHardTimeout, res.StaleReason)
	require.Equal(t, []byte("stale-value"), res.Value)
}

func TestGetOrSet_FactoryFailureFallsBackToStale(t *testing.T) {
	clock := testutil.NewManualClock(time.Now())
	o := newTestOrchestrator(t, clock, DefaultOptions())
	ctx := context.Background()

	seedOpts := &EntryOptions{
		TTL:        time.Minute,
		Resilience: &ResilienceOptions{FailSafeMaxDuration: time.Hour},
	}
	require.NoError(t, o.Set(ctx, "user:1", []byte("stale-value"), seedOpts))
	clock.Advance(2 * time.Minute)

	boom := errors.New("upstream unavailable")
	factory := func(ctx context.Context) ([]byte, error) { return nil, boom }
	entryOpts := &EntryOptions{
		TTL: time.Minute,
		Resilience: &ResilienceOptions{
			FailSafeMaxDuration:     time.Hour,
			EnableBackgroundRefresh: false,
		},
	}

	res, err := o.GetOrSet(ctx, "user:1", factory, entryOpts)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.True(t, res.Stale)
	require.Equal(t, StaleReasonFactoryFailure, res.StaleReason)
}

func TestGetOrSet_SoftTimeoutServesStaleThenBackgroundRefreshUpdates(t *testing.T) {
	clock := testutil.NewManualClock(time.Now())
	o := newTestOrchestrator(t, clock, DefaultOptions())
	ctx := context.Background()

	seedOpts := &EntryOptions{
		TTL:        time.Minute,
		Resilience: &ResilienceOptions{FailSafeMaxDuration: time.Hour},
	}
	require.NoError(t, o.Set(ctx, "user:1", []byte("stale-value"), seedOpts))
	clock.Advance(2 * time.Minute)

	factoryDone := make(chan struct{})
	factory := func(ctx context.Context) ([]byte, error) {
		time.Sleep(100 * time.Millisecond)
		defer close(factoryDone)
		return []byte("refreshed-value"), nil
	}

	softTimeout := 10 * time.Millisecond
	entryOpts := &EntryOptions{
		TTL: time.Minute,
		Resilience: &ResilienceOptions{
			FailSafeMaxDuration:     time.Hour,
			SoftTimeout:             &softTimeout,
			EnableBackgroundRefresh: true,
		},
	}

	res, err := o.GetOrSet(ctx, "user:1", factory, entryOpts)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.True(t, res.Stale)
	require.Equal(t, StaleReasonSoftTimeout, res.StaleReason)
	require.Equal(t, []byte("stale-value"), res.Value)

	select {
	case <-factoryDone:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the in-flight refresh task to complete")
	}
	time.Sleep(20 * time.Millisecond) // let the shared task persist its result

	res2, err := o.Get(ctx, "user:1")
	require.NoError(t, err)
	require.NotNil(t, res2)
	require.Equal(t, []byte("refreshed-value"), res2.Value)
}

func TestGetOrSet_NilFactoryRejected(t *testing.T) {
	o := newTestOrchestrator(t, testutil.NewManualClock(time.Now()), DefaultOptions())
	_, err := o.GetOrSet(context.Background(), "user:1", nil, nil)
	require.ErrorIs(t, err, ErrGetOrSetNilFactory)
}

func TestRemove_EvictsBothTiers(t *testing.T) {
	o := newTestOrchestrator(t, testutil.NewManualClock(time.Now()), DefaultOptions())
	ctx := context.Background()

	require.NoError(t, o.Set(ctx, "user:1", []byte("alice"), &EntryOptions{TTL: time.Minute}))
	require.NoError(t, o.Remove(ctx, "user:1"))

	res, err := o.Get(ctx, "user:1")
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestStats_TracksHitsAndMisses(t *testing.T) {
	o := newTestOrchestrator(t, testutil.NewManualClock(time.Now()), DefaultOptions())
	ctx := context.Background()

	_, _ = o.Get(ctx, "missing")
	require.NoError(t, o.Set(ctx, "user:1", []byte("alice"), &EntryOptions{TTL: time.Minute}))
	_, _ = o.Get(ctx, "user:1")

	stats := o.Stats()
	require.Equal(t, uint64(1), stats.Misses)
	require.Equal(t, uint64(1), stats.Hits)
	require.Equal(t, uint64(1), stats.Sets)
}
