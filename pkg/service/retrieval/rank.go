package retrieval

import (
	"slices"

	"github.com/secmon-lab/autocrm/pkg/domain/model"
	"github.com/secmon-lab/autocrm/pkg/domain/model/config"
)

const (
	// DefaultMinScore is the minimum similarity for an entry to be used as context
	DefaultMinScore = config.DefaultMinScore
	// DefaultLimit is the maximum number of ranked entries
	DefaultLimit = config.DefaultLimit
)

// Rank scores entries against the query, drops those under minScore and returns them in
// descending similarity order, truncated to limit. Ties keep their input order.
// limit <= 0 disables truncation. Entries whose embedding fails to decode are skipped.
func Rank(query []float64, entries []*model.KnowledgeEntry, minScore float64, limit int) []model.ScoredEntry {
	ranked := make([]model.ScoredEntry, 0, len(entries))

	for _, e := range entries {
		if e == nil {
			continue
		}
		vec, ok := Normalize(e.Embedding)
		if !ok {
			continue
		}

		sim := Cosine(query, vec)
		if sim < minScore {
			continue
		}

		entry := *e
		entry.Embedding = e.Embedding.Clone()
		ranked = append(ranked, model.ScoredEntry{
			Entry:      entry,
			Vector:     vec,
			Similarity: sim,
		})
	}

	slices.SortStableFunc(ranked, func(a, b model.ScoredEntry) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		default:
			return 0
		}
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked
}
