package postgres_test

import (
	"math"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/pgvector/pgvector-go"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
	"github.com/secmon-lab/autocrm/pkg/repository/postgres"
)

func TestKnowledgeQueries_QuoteTableName(t *testing.T) {
	query, ddl := postgres.KnowledgeQueriesForTest(`help"; DROP TABLE users; --`)
	gt.String(t, query).Contains(`FROM "help""; DROP TABLE users; --"`)
	gt.String(t, ddl).Contains(`CREATE TABLE IF NOT EXISTS "help""; DROP TABLE users; --" (`)

	query, ddl = postgres.KnowledgeQueriesForTest("knowledge_base")
	gt.String(t, query).Contains(`FROM "knowledge_base"`)
	gt.String(t, ddl).Contains(`CREATE TABLE IF NOT EXISTS "knowledge_base" (`)
}

func TestToColumns(t *testing.T) {
	t.Run("finite vector goes to the vector column", func(t *testing.T) {
		vector, rawText := postgres.ToColumnsForTest(model.NumericEmbedding([]float64{0.5, -1}))
		v, ok := vector.(pgvector.Vector)
		gt.Bool(t, ok).True()
		gt.Value(t, v.Slice()).Equal([]float32{0.5, -1})
		gt.Value(t, rawText).Nil()
	})

	t.Run("NaN is kept as raw text", func(t *testing.T) {
		vector, rawText := postgres.ToColumnsForTest(model.NumericEmbedding([]float64{1, math.NaN()}))
		gt.Value(t, vector).Nil()
		gt.Value(t, rawText).Equal(any("[1,null]"))
	})

	t.Run("empty vector is kept as raw text", func(t *testing.T) {
		vector, rawText := postgres.ToColumnsForTest(model.NumericEmbedding([]float64{}))
		gt.Value(t, vector).Nil()
		gt.Value(t, rawText).Equal(any("[]"))
	})

	t.Run("float32 overflow is kept as raw text", func(t *testing.T) {
		vector, rawText := postgres.ToColumnsForTest(model.NumericEmbedding([]float64{1e300}))
		gt.Value(t, vector).Nil()
		gt.Value(t, rawText).Equal(any("[1e+300]"))
	})

	t.Run("invalid stores nothing", func(t *testing.T) {
		vector, rawText := postgres.ToColumnsForTest(model.InvalidEmbedding())
		gt.Value(t, vector).Nil()
		gt.Value(t, rawText).Nil()
	})
}
