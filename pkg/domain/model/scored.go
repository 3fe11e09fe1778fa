package model

// ScoredEntry is a knowledge entry paired with its cosine similarity to a query.
// Entry is a copy; ranking never touches the stored entry.
type ScoredEntry struct {
	Entry      KnowledgeEntry
	Vector     []float64
	Similarity float64
}
