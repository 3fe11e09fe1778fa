package cli

import (
	"testing"

	"github.com/m-mizutani/gt"
)

func TestKnowledgeIndexConfig(t *testing.T) {
	cfg := knowledgeIndexConfig("staging", 768)
	gt.Array(t, cfg.Collections).Length(1).Required()
	gt.Value(t, cfg.Collections[0].Name).Equal("staging_knowledge")

	indexes := cfg.Collections[0].Indexes
	gt.Array(t, indexes).Length(1).Required()
	gt.Array(t, indexes[0].Fields).Length(1).Required()
	gt.Value(t, indexes[0].Fields[0].Path).Equal("Embedding")
	gt.Value(t, indexes[0].Fields[0].Vector).NotNil().Required()
	gt.Value(t, indexes[0].Fields[0].Vector.Dimension).Equal(768)
}

func TestKnowledgeIndexConfig_NoPrefix(t *testing.T) {
	cfg := knowledgeIndexConfig("", 256)
	gt.Value(t, cfg.Collections[0].Name).Equal("knowledge")
}

func TestKnowledgeIndexConfig_Valid(t *testing.T) {
	gt.NoError(t, knowledgeIndexConfig("prod", 768).Validate())
}
