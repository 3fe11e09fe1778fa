package interfaces

import (
	"context"

	"github.com/secmon-lab/autocrm/pkg/domain/model"
)

// KnowledgeRepository defines the interface for KnowledgeEntry persistence
type KnowledgeRepository interface {
	// ListAll returns every knowledge entry. Retrieval ranks them in memory.
	ListAll(ctx context.Context) ([]*model.KnowledgeEntry, error)

	// Get retrieves a knowledge entry by ID
	Get(ctx context.Context, id model.KnowledgeID) (*model.KnowledgeEntry, error)

	// Put creates or replaces a knowledge entry. An empty ID is assigned.
	Put(ctx context.Context, entry *model.KnowledgeEntry) (*model.KnowledgeEntry, error)

	// Delete deletes a knowledge entry by ID
	Delete(ctx context.Context, id model.KnowledgeID) error
}
