package source_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
	"github.com/secmon-lab/autocrm/pkg/service/source"
)

const sample = `[
  {"id": "ws", "topic": "Getting Started", "subtopic": "Workspaces", "text": "Navigate to dashboard and click Create Workspace", "embedding": [0.82, 0.57]},
  {"id": "enc", "topic": "Tickets", "text": "Click New Ticket", "embedding": "[0.1, 0.2]"},
  {"id": "none", "topic": "Draft"}
]`

func TestDecode(t *testing.T) {
	entries, err := source.Decode(strings.NewReader(sample))
	gt.NoError(t, err).Required()
	gt.Array(t, entries).Length(3)

	gt.Value(t, entries[0].ID).Equal(model.KnowledgeID("ws"))
	gt.Value(t, entries[0].Subtopic).Equal("Workspaces")
	v, ok := entries[0].Embedding.Numeric()
	gt.Bool(t, ok).True()
	gt.Value(t, v).Equal([]float64{0.82, 0.57})

	s, ok := entries[1].Embedding.Encoded()
	gt.Bool(t, ok).True()
	gt.Value(t, s).Equal("[0.1, 0.2]")

	gt.Value(t, entries[2].Embedding.Kind()).Equal(model.EmbeddingKindInvalid)

	t.Run("not an array", func(t *testing.T) {
		_, err := source.Decode(strings.NewReader(`{"id": "x"}`))
		gt.Value(t, err).NotNil()
	})
}

func TestEncodeDecode(t *testing.T) {
	entries, err := source.Decode(strings.NewReader(sample))
	gt.NoError(t, err).Required()

	var buf bytes.Buffer
	gt.NoError(t, source.Encode(&buf, entries)).Required()

	again, err := source.Decode(&buf)
	gt.NoError(t, err).Required()
	gt.Array(t, again).Length(3)
	gt.Value(t, again[1].Embedding.Kind()).Equal(model.EmbeddingKindEncoded)
}

func TestLoad_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.json")
	gt.NoError(t, os.WriteFile(path, []byte(sample), 0o600)).Required()

	entries, err := source.Load(context.Background(), path)
	gt.NoError(t, err).Required()
	gt.Array(t, entries).Length(3)

	_, err = source.Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	gt.Value(t, err).NotNil()
}

func TestParseGCS(t *testing.T) {
	bucket, object, err := source.ParseGCS("gs://help-kb/exports/knowledge.json")
	gt.NoError(t, err).Required()
	gt.Value(t, bucket).Equal("help-kb")
	gt.Value(t, object).Equal("exports/knowledge.json")

	for _, invalid := range []string{"gs://", "gs://bucket", "gs:///object", "/local/path"} {
		_, _, err := source.ParseGCS(invalid)
		gt.Value(t, err).NotNil()
	}

	gt.Bool(t, source.IsGCS("gs://a/b")).True()
	gt.Bool(t, source.IsGCS("./a.json")).False()
}

func TestLoad_GCS(t *testing.T) {
	location := os.Getenv("TEST_GCS_KNOWLEDGE_URL")
	if location == "" {
		t.Skip("TEST_GCS_KNOWLEDGE_URL not set")
	}

	_, err := source.Load(context.Background(), location)
	gt.NoError(t, err).Required()
}
