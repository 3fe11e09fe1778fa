package retrieval

import (
	"encoding/json"

	"github.com/secmon-lab/autocrm/pkg/domain/model"
)

// Normalize resolves a stored embedding into a vector.
// ok is false when the value can not be decoded into an array at all; such entries are
// excluded from ranking. An array with bad elements decodes fine and is scored 0 later.
func Normalize(raw model.RawEmbedding) ([]float64, bool) {
	switch raw.Kind() {
	case model.EmbeddingKindNumeric:
		return raw.Numeric()

	case model.EmbeddingKindEncoded:
		s, _ := raw.Encoded()
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, false
		}
		items, ok := v.([]any)
		if !ok {
			return nil, false
		}
		return model.RawEmbeddingFromAny(items).Numeric()

	default:
		return nil, false
	}
}
