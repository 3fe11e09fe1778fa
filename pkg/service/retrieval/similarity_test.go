package retrieval_test

import (
	"math"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
	"github.com/secmon-lab/autocrm/pkg/service/retrieval"
)

const tolerance = 1e-9

func near(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > tolerance {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCosine_Symmetry(t *testing.T) {
	pairs := [][2][]float64{
		{{1, 2, 3}, {4, 5, 6}},
		{{-1, 0.5}, {3, -2}},
		{{0.1, 0.2, 0.3, 0.4}, {0.4, 0.3, 0.2, 0.1}},
	}
	for _, p := range pairs {
		near(t, retrieval.Cosine(p[0], p[1]), retrieval.Cosine(p[1], p[0]))
	}
}

func TestCosine_SelfSimilarity(t *testing.T) {
	for _, v := range [][]float64{
		{1, 2, 3},
		{-0.5, 0.25},
		{1e-3, 5e2, -7},
	} {
		near(t, retrieval.Cosine(v, v), 1)
	}
}

func TestCosine_Known(t *testing.T) {
	near(t, retrieval.Cosine([]float64{1, 0}, []float64{0, 1}), 0)
	near(t, retrieval.Cosine([]float64{1, 0}, []float64{-1, 0}), -1)
	near(t, retrieval.Cosine([]float64{1, 0}, []float64{1, 1}), 1/math.Sqrt2)
}

func TestCosine_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
	}{
		{name: "zero vector", a: []float64{1, 2, 3}, b: []float64{0, 0, 0}},
		{name: "both zero", a: []float64{0, 0}, b: []float64{0, 0}},
		{name: "length mismatch", a: []float64{1, 2, 3}, b: []float64{1, 2}},
		{name: "nil", a: nil, b: []float64{1, 2, 3}},
		{name: "empty", a: []float64{}, b: []float64{}},
		{name: "NaN element", a: []float64{1, math.NaN(), 3}, b: []float64{1, 2, 3}},
		{name: "Inf element", a: []float64{1, 2, 3}, b: []float64{math.Inf(1), 2, 3}},
		{name: "overflowing norm", a: []float64{math.MaxFloat64, math.MaxFloat64}, b: []float64{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := retrieval.Cosine(tt.a, tt.b)
			gt.Value(t, got).Equal(0.0)
		})
	}
}

func TestCosine_NotAVector(t *testing.T) {
	vec, ok := retrieval.Normalize(model.EncodedEmbedding("not a vector"))
	gt.Bool(t, ok).False()
	gt.Value(t, retrieval.Cosine(vec, []float64{1, 2, 3})).Equal(0.0)
}
