package interfaces

import (
	"context"

	"github.com/secmon-lab/autocrm/pkg/domain/model"
)

// Embedder turns text into an embedding vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Completer generates a single text reply for an assembled prompt
type Completer interface {
	Complete(ctx context.Context, prompt *model.Prompt) (string, error)
}
