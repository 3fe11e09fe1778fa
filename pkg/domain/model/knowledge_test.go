package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
)

func TestNewKnowledgeID(t *testing.T) {
	id := model.NewKnowledgeID()
	gt.Value(t, len(id)).Equal(36)
	gt.Value(t, model.NewKnowledgeID()).NotEqual(id)
}

func TestKnowledgeEntry_HasText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "text", text: "Navigate to dashboard", want: true},
		{name: "empty", text: "", want: false},
		{name: "whitespace only", text: " \n\t", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &model.KnowledgeEntry{Text: tt.text}
			gt.Value(t, e.HasText()).Equal(tt.want)
		})
	}
}

func TestKnowledgeEntry_Clone(t *testing.T) {
	orig := &model.KnowledgeEntry{
		ID:        model.NewKnowledgeID(),
		Topic:     "Getting Started",
		Text:      "Navigate to dashboard and click Create Workspace",
		Embedding: model.NumericEmbedding([]float64{1, 2, 3}),
	}

	c := orig.Clone()
	gt.Value(t, c.ID).Equal(orig.ID)
	gt.Value(t, c.Topic).Equal(orig.Topic)

	v, ok := c.Embedding.Numeric()
	gt.Bool(t, ok).True()
	v[0] = 100

	ov, _ := orig.Embedding.Numeric()
	gt.Value(t, ov[0]).Equal(1.0)

	var nilEntry *model.KnowledgeEntry
	gt.Value(t, nilEntry.Clone()).Nil()
}
