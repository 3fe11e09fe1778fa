package retrieval_test

import (
	"math"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
	"github.com/secmon-lab/autocrm/pkg/service/retrieval"
)

func TestNormalize(t *testing.T) {
	t.Run("numeric passes through", func(t *testing.T) {
		v, ok := retrieval.Normalize(model.NumericEmbedding([]float64{0.1, 0.2}))
		gt.Bool(t, ok).True()
		gt.Value(t, v).Equal([]float64{0.1, 0.2})
	})

	t.Run("numeric is not aliased", func(t *testing.T) {
		raw := model.NumericEmbedding([]float64{0.1, 0.2})
		v, _ := retrieval.Normalize(raw)
		v[0] = 5
		again, _ := retrieval.Normalize(raw)
		gt.Value(t, again[0]).Equal(0.1)
	})

	t.Run("encoded array decodes", func(t *testing.T) {
		v, ok := retrieval.Normalize(model.EncodedEmbedding("[0.5, -1, 2e-1]"))
		gt.Bool(t, ok).True()
		gt.Value(t, v).Equal([]float64{0.5, -1, 0.2})
	})

	t.Run("encoded array with bad element keeps NaN", func(t *testing.T) {
		v, ok := retrieval.Normalize(model.EncodedEmbedding(`[1, "x", 3]`))
		gt.Bool(t, ok).True()
		gt.Array(t, v).Length(3)
		gt.Bool(t, math.IsNaN(v[1])).True()
	})

	failures := []struct {
		name string
		raw  model.RawEmbedding
	}{
		{name: "unparsable", raw: model.EncodedEmbedding("[1, 2")},
		{name: "plain text", raw: model.EncodedEmbedding("not a vector")},
		{name: "json object", raw: model.EncodedEmbedding(`{"a":1}`)},
		{name: "json scalar", raw: model.EncodedEmbedding("3")},
		{name: "json null", raw: model.EncodedEmbedding("null")},
		{name: "empty string", raw: model.EncodedEmbedding("")},
		{name: "invalid", raw: model.InvalidEmbedding()},
		{name: "zero value", raw: model.RawEmbedding{}},
	}
	for _, tt := range failures {
		t.Run("fails on "+tt.name, func(t *testing.T) {
			_, ok := retrieval.Normalize(tt.raw)
			gt.Bool(t, ok).False()
		})
	}
}
