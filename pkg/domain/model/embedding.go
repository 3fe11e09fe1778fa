package model

import (
	"encoding/json"
	"math"

	"github.com/m-mizutani/goerr/v2"
)

// EmbeddingKind is the stored representation of an embedding
type EmbeddingKind int

const (
	// EmbeddingKindInvalid is a value that can not be turned into a vector
	EmbeddingKindInvalid EmbeddingKind = iota
	// EmbeddingKindNumeric is a native numeric sequence
	EmbeddingKindNumeric
	// EmbeddingKindEncoded is a serialized (JSON text) numeric sequence
	EmbeddingKindEncoded
)

// String returns the string representation of the kind
func (k EmbeddingKind) String() string {
	switch k {
	case EmbeddingKindNumeric:
		return "numeric"
	case EmbeddingKindEncoded:
		return "encoded"
	default:
		return "invalid"
	}
}

// RawEmbedding is an embedding as it was stored: numeric, encoded text or invalid.
// It is resolved into a vector once, by the retrieval normalizer.
type RawEmbedding struct {
	kind    EmbeddingKind
	numeric []float64
	encoded string
}

// NumericEmbedding wraps a native numeric sequence. The slice is copied.
func NumericEmbedding(v []float64) RawEmbedding {
	if v == nil {
		return InvalidEmbedding()
	}
	return RawEmbedding{
		kind:    EmbeddingKindNumeric,
		numeric: append(make([]float64, 0, len(v)), v...),
	}
}

// EncodedEmbedding wraps a serialized numeric sequence such as "[0.1,0.2]"
func EncodedEmbedding(s string) RawEmbedding {
	return RawEmbedding{
		kind:    EmbeddingKindEncoded,
		encoded: s,
	}
}

// InvalidEmbedding is a missing or unusable embedding
func InvalidEmbedding() RawEmbedding {
	return RawEmbedding{kind: EmbeddingKindInvalid}
}

// RawEmbeddingFromAny classifies a dynamically typed stored value.
// Elements of a generic array that are not numbers become NaN so the entry is scored zero
// instead of being dropped.
func RawEmbeddingFromAny(v any) RawEmbedding {
	switch x := v.(type) {
	case RawEmbedding:
		return x.Clone()
	case []float64:
		return NumericEmbedding(x)
	case []float32:
		out := make([]float64, len(x))
		for i, f := range x {
			out[i] = float64(f)
		}
		return NumericEmbedding(out)
	case []any:
		out := make([]float64, len(x))
		for i, item := range x {
			out[i] = numberOrNaN(item)
		}
		return NumericEmbedding(out)
	case string:
		return EncodedEmbedding(x)
	default:
		return InvalidEmbedding()
	}
}

func numberOrNaN(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// Kind returns the stored representation
func (r RawEmbedding) Kind() EmbeddingKind {
	return r.kind
}

// Numeric returns a copy of the numeric sequence. ok is false unless the kind is numeric.
func (r RawEmbedding) Numeric() ([]float64, bool) {
	if r.kind != EmbeddingKindNumeric {
		return nil, false
	}
	return append(make([]float64, 0, len(r.numeric)), r.numeric...), true
}

// Encoded returns the serialized text. ok is false unless the kind is encoded.
func (r RawEmbedding) Encoded() (string, bool) {
	if r.kind != EmbeddingKindEncoded {
		return "", false
	}
	return r.encoded, true
}

// Vector returns the embedding as a non-empty sequence of finite numbers, the shape a vector
// column or index accepts. Encoded text qualifies only when it is a JSON array of such numbers.
func (r RawEmbedding) Vector() ([]float64, bool) {
	var v []float64
	switch r.kind {
	case EmbeddingKindNumeric:
		v = r.numeric
	case EmbeddingKindEncoded:
		var items []any
		if err := json.Unmarshal([]byte(r.encoded), &items); err != nil {
			return nil, false
		}
		v = make([]float64, len(items))
		for i, item := range items {
			f, ok := item.(float64)
			if !ok {
				return nil, false
			}
			v[i] = f
		}
	default:
		return nil, false
	}

	if len(v) == 0 {
		return nil, false
	}
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
	}
	return append(make([]float64, 0, len(v)), v...), true
}

// Text returns the embedding as JSON text: encoded values verbatim, numeric values as an array
// with non-finite elements written as null. ok is false for an invalid embedding.
func (r RawEmbedding) Text() (string, bool) {
	switch r.kind {
	case EmbeddingKindEncoded:
		return r.encoded, true
	case EmbeddingKindNumeric:
		data, err := r.MarshalJSON()
		if err != nil {
			return "", false
		}
		return string(data), true
	default:
		return "", false
	}
}

// Clone returns a copy that shares no memory with r
func (r RawEmbedding) Clone() RawEmbedding {
	if r.kind == EmbeddingKindNumeric {
		return NumericEmbedding(r.numeric)
	}
	return r
}

// MarshalJSON writes numeric as an array, encoded as a string and invalid as null
func (r RawEmbedding) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case EmbeddingKindNumeric:
		out := make([]any, len(r.numeric))
		for i, f := range r.numeric {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				out[i] = nil
				continue
			}
			out[i] = f
		}
		return json.Marshal(out)
	case EmbeddingKindEncoded:
		return json.Marshal(r.encoded)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts an array (numeric), a string (encoded) or anything else (invalid)
func (r *RawEmbedding) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return goerr.Wrap(err, "failed to decode embedding")
	}
	*r = RawEmbeddingFromAny(v)
	return nil
}
