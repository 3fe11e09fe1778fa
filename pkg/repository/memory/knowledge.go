package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
)

type knowledgeRepository struct {
	mu        sync.RWMutex
	knowledge map[model.KnowledgeID]*model.KnowledgeEntry
}

func newKnowledgeRepository() *knowledgeRepository {
	return &knowledgeRepository{
		knowledge: make(map[model.KnowledgeID]*model.KnowledgeEntry),
	}
}

func (r *knowledgeRepository) ListAll(ctx context.Context) ([]*model.KnowledgeEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.KnowledgeEntry, 0, len(r.knowledge))
	for _, k := range r.knowledge {
		result = append(result, k.Clone())
	}

	// IDs are UUID v7, so ID order is insertion order for generated IDs
	slices.SortFunc(result, func(a, b *model.KnowledgeEntry) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})

	return result, nil
}

func (r *knowledgeRepository) Get(ctx context.Context, id model.KnowledgeID) (*model.KnowledgeEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.knowledge[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "knowledge not found", goerr.V("id", id))
	}

	return entry.Clone(), nil
}

func (r *knowledgeRepository) Put(ctx context.Context, entry *model.KnowledgeEntry) (*model.KnowledgeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	stored := entry.Clone()
	if stored.ID == "" {
		stored.ID = model.NewKnowledgeID()
	}

	if existing, ok := r.knowledge[stored.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	r.knowledge[stored.ID] = stored
	return stored.Clone(), nil
}

func (r *knowledgeRepository) Delete(ctx context.Context, id model.KnowledgeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.knowledge[id]; !exists {
		return goerr.Wrap(ErrNotFound, "knowledge not found", goerr.V("id", id))
	}

	delete(r.knowledge, id)
	return nil
}
