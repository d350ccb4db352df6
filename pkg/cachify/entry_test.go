package cachify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStateAt_NoMetadataNoPayload(t *testing.T) {
	require.Equal(t, StateMiss, StateAt(time.Now(), nil, false))
}

func TestStateAt_NoMetadataWithPayload(t *testing.T) {
	require.Equal(t, StateFresh, StateAt(time.Now(), nil, true), "payload with no metadata is treated as fresh for backward compatibility")
}

func TestStateAt_Fresh(t *testing.T) {
	now := time.Now()
	meta := &Metadata{
		CreatedAt:         now.Add(-time.Minute),
		LogicalExpiration: now.Add(time.Minute),
		FailSafeUntil:     now.Add(5 * time.Minute),
	}
	require.Equal(t, StateFresh, StateAt(now, meta, true))
}

func TestStateAt_Stale(t *testing.T) {
	now := time.Now()
	meta := &Metadata{
		CreatedAt:         now.Add(-time.Hour),
		LogicalExpiration: now.Add(-time.Minute),
		FailSafeUntil:     now.Add(time.Minute),
	}
	require.Equal(t, StateStale, StateAt(now, meta, true))
}

func TestStateAt_MissAfterFailSafe(t *testing.T) {
	now := time.Now()
	meta := &Metadata{
		CreatedAt:         now.Add(-time.Hour),
		LogicalExpiration: now.Add(-30 * time.Minute),
		FailSafeUntil:     now.Add(-time.Minute),
	}
	require.Equal(t, StateMiss, StateAt(now, meta, true))
}

func TestStateAt_BoundaryAtLogicalExpiration(t *testing.T) {
	now := time.Now()
	meta := &Metadata{LogicalExpiration: now, FailSafeUntil: now.Add(time.Minute)}
	require.Equal(t, StateFresh, StateAt(now, meta, true), "now == logical_expiration is still fresh")
}

func TestStateAt_BoundaryAtFailSafeUntil(t *testing.T) {
	now := time.Now()
	meta := &Metadata{LogicalExpiration: now.Add(-time.Second), FailSafeUntil: now}
	require.Equal(t, StateStale, StateAt(now, meta, true), "now == fail_safe_until is still stale")
}

func TestMetadataMarshalRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	meta := &Metadata{
		CreatedAt:         now,
		LogicalExpiration: now.Add(time.Minute),
		FailSafeUntil:     now.Add(5 * time.Minute),
	}
	data, err := meta.marshal()
	require.NoError(t, err)

	decoded, err := unmarshalMetadata(data)
	require.NoError(t, err)
	require.True(t, meta.CreatedAt.Equal(decoded.CreatedAt))
	require.True(t, meta.LogicalExpiration.Equal(decoded.LogicalExpiration))
	require.True(t, meta.FailSafeUntil.Equal(decoded.FailSafeUntil))
}
