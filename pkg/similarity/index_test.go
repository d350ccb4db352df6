package similarity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIndex_AddOrUpdateAndGetCandidates(t *testing.T) {
	idx, err := NewIndex(10)
	require.NoError(t, err)

	sig, _ := ComputeSignature("hello world", 0)
	idx.AddOrUpdate(&Entry{Key: "k1", Signature: sig, CachedAt: time.Now()})

	candidates := idx.GetCandidates(sig, 10)
	require.Len(t, candidates, 1)
	require.Equal(t, "k1", candidates[0].Key)
}

func TestIndex_UpdateMovesOldBucketsAway(t *testing.T) {
	idx, err := NewIndex(10)
	require.NoError(t, err)

	sigA, _ := ComputeSignature("alpha beta", 0)
	sigB, _ := ComputeSignature("gamma delta epsilon zeta", 0)

	idx.AddOrUpdate(&Entry{Key: "k1", Signature: sigA, CachedAt: time.Now()})
	idx.AddOrUpdate(&Entry{Key: "k1", Signature: sigB, CachedAt: time.Now()})

	require.Empty(t, idx.GetCandidates(sigA, 10), "stale bucket membership must be vacated on update")
	require.Len(t, idx.GetCandidates(sigB, 10), 1)
}

func TestIndex_RemoveDeletesFromBucketsAndLRU(t *testing.T) {
	idx, err := NewIndex(10)
	require.NoError(t, err)

	sig, _ := ComputeSignature("hello world", 0)
	idx.AddOrUpdate(&Entry{Key: "k1", Signature: sig, CachedAt: time.Now()})
	idx.Remove("k1")

	require.Empty(t, idx.GetCandidates(sig, 10))
	require.Equal(t, 0, idx.Len())
}

func TestIndex_EvictsOverCapacity(t *testing.T) {
	idx, err := NewIndex(2)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		sig, _ := ComputeSignature(string(rune('a'+i))+" filler token", 0)
		idx.AddOrUpdate(&Entry{Key: string(rune('a' + i)), Signature: sig, CachedAt: time.Now()})
	}
	require.Equal(t, 2, idx.Len())
}

func TestIndex_GetCandidatesRespectsMax(t *testing.T) {
	idx, err := NewIndex(10)
	require.NoError(t, err)

	sig, _ := ComputeSignature("hello world", 0)
	for i := 0; i < 5; i++ {
		idx.AddOrUpdate(&Entry{Key: string(rune('a' + i)), Signature: sig, CachedAt: time.Now()})
	}
	require.Len(t, idx.GetCandidates(sig, 2), 2)
}
