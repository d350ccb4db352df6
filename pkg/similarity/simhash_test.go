package similarity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeSignature_IdenticalInputSameSignature(t *testing.T) {
	sig1, count1 := ComputeSignature("hello world hello", 0)
	sig2, count2 := ComputeSignature("hello world hello", 0)
	require.Equal(t, sig1, sig2)
	require.Equal(t, count1, count2)
	require.Equal(t, 3, count1)
}

func TestComputeSignature_RespectsMaxTokens(t *testing.T) {
	_, count := ComputeSignature("one two three four five", 3)
	require.Equal(t, 3, count)
}

func TestComputeSignature_IdenticalPayloadsScoreOne(t *testing.T) {
	sig1, _ := ComputeSignature("hello world", 0)
	sig2, _ := ComputeSignature("hello world", 0)
	score := HammingScorer{}.Score(Entry{Signature: sig1}, Entry{Signature: sig2})
	require.Equal(t, 1.0, score)
}

func TestHamming_Symmetric(t *testing.T) {
	sigA, _ := ComputeSignature("hello world", 0)
	sigB, _ := ComputeSignature("goodbye world", 0)
	require.Equal(t, Hamming(sigA, sigB), Hamming(sigB, sigA))
}

func TestHammingScorer_Symmetric(t *testing.T) {
	sigA, _ := ComputeSignature("hello world", 0)
	sigB, _ := ComputeSignature("goodbye world", 0)
	a, b := Entry{Signature: sigA}, Entry{Signature: sigB}
	scorer := HammingScorer{}
	require.Equal(t, scorer.Score(a, b), scorer.Score(b, a))
}

func TestTokenize_SplitsOnNonAlphanumeric(t *testing.T) {
	got := tokenize("hello, world! 123-abc")
	require.Equal(t, []string{"hello", "world", "123", "abc"}, got)
}
