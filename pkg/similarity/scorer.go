package similarity

// Scorer computes a similarity score in [0, 1] between two candidates. 1.0
// means identical.
type Scorer interface {
	Score(a, b Entry) float64
}

// HammingScorer is the default scorer: 1 - hamming(a,b)/64.
type HammingScorer struct{}

func (HammingScorer) Score(a, b Entry) float64 {
	return 1 - float64(Hamming(a.Signature, b.Signature))/64
}

// EmbeddingScorer is an optional collaborator: when both entries carry
// embeddings, an EmbeddingScorer implementation may be preferred over the
// default Hamming score.
type EmbeddingScorer interface {
	Score(a, b []float32) (float64, bool)
}

// resolveScore prefers an embedding score when both entries have embeddings
// and an EmbeddingScorer is configured; otherwise falls back to fallback.
func resolveScore(a, b Entry, embed EmbeddingScorer, fallback Scorer) float64 {
	if embed != nil && len(a.Embedding) > 0 && len(b.Embedding) > 0 {
		if score, ok := embed.Score(a.Embedding, b.Embedding); ok {
			return score
		}
	}
	return fallback.Score(a, b)
}
