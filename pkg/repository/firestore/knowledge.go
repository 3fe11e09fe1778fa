package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// KnowledgeCollection is the collection name of knowledge entries without prefix
const KnowledgeCollection = "knowledge"

// knowledgeDoc is the Firestore document representation of model.KnowledgeEntry.
// A numeric embedding is stored as firestore.Vector64 so that a vector index can be built on it;
// an encoded embedding is kept verbatim in EncodedEmbedding and decoded at retrieval time.
type knowledgeDoc struct {
	ID               model.KnowledgeID  `firestore:"ID"`
	Topic            string             `firestore:"Topic"`
	Subtopic         string             `firestore:"Subtopic"`
	Text             string             `firestore:"Text"`
	Embedding        firestore.Vector64 `firestore:"Embedding,omitempty"`
	EncodedEmbedding string             `firestore:"EncodedEmbedding,omitempty"`
	CreatedAt        time.Time          `firestore:"CreatedAt"`
	UpdatedAt        time.Time          `firestore:"UpdatedAt"`
}

func toKnowledgeDoc(k *model.KnowledgeEntry) *knowledgeDoc {
	doc := &knowledgeDoc{
		ID:        k.ID,
		Topic:     k.Topic,
		Subtopic:  k.Subtopic,
		Text:      k.Text,
		CreatedAt: k.CreatedAt,
		UpdatedAt: k.UpdatedAt,
	}
	if v, ok := k.Embedding.Vector(); ok {
		doc.Embedding = firestore.Vector64(v)
	} else if s, ok := k.Embedding.Text(); ok {
		doc.EncodedEmbedding = s
	}
	return doc
}

func fromKnowledgeDoc(d *knowledgeDoc) *model.KnowledgeEntry {
	k := &model.KnowledgeEntry{
		ID:        d.ID,
		Topic:     d.Topic,
		Subtopic:  d.Subtopic,
		Text:      d.Text,
		Embedding: model.InvalidEmbedding(),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	switch {
	case len(d.Embedding) > 0:
		k.Embedding = model.NumericEmbedding([]float64(d.Embedding))
	case d.EncodedEmbedding != "":
		k.Embedding = model.EncodedEmbedding(d.EncodedEmbedding)
	}
	return k
}

func docToKnowledge(doc *firestore.DocumentSnapshot) (*model.KnowledgeEntry, error) {
	var d knowledgeDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, err
	}
	if d.ID == "" {
		d.ID = model.KnowledgeID(doc.Ref.ID)
	}
	return fromKnowledgeDoc(&d), nil
}

type knowledgeRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newKnowledgeRepository(client *firestore.Client) *knowledgeRepository {
	return &knowledgeRepository{
		client: client,
	}
}

// CollectionName returns the knowledge collection name for the given prefix
func CollectionName(prefix string) string {
	if prefix != "" {
		return prefix + "_" + KnowledgeCollection
	}
	return KnowledgeCollection
}

func (r *knowledgeRepository) collectionName() string {
	return CollectionName(r.collectionPrefix)
}

func (r *knowledgeRepository) knowledgeCollection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionName())
}

func (r *knowledgeRepository) ListAll(ctx context.Context) ([]*model.KnowledgeEntry, error) {
	iter := r.knowledgeCollection().Documents(ctx)
	defer iter.Stop()

	entries := make([]*model.KnowledgeEntry, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate knowledge")
		}

		k, err := docToKnowledge(doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal knowledge", goerr.V("id", doc.Ref.ID))
		}

		entries = append(entries, k)
	}

	return entries, nil
}

func (r *knowledgeRepository) Get(ctx context.Context, id model.KnowledgeID) (*model.KnowledgeEntry, error) {
	doc, err := r.knowledgeCollection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "knowledge not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get knowledge", goerr.V("id", id))
	}

	k, err := docToKnowledge(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal knowledge", goerr.V("id", id))
	}

	return k, nil
}

func (r *knowledgeRepository) Put(ctx context.Context, entry *model.KnowledgeEntry) (*model.KnowledgeEntry, error) {
	stored := entry.Clone()
	if stored.ID == "" {
		stored.ID = model.NewKnowledgeID()
	}

	docRef := r.knowledgeCollection().Doc(string(stored.ID))
	// Firestore keeps microsecond precision
	now := time.Now().UTC().Truncate(time.Microsecond)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		stored.CreatedAt = now
		existing, err := tx.Get(docRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to get knowledge")
		}
		if err == nil {
			var d knowledgeDoc
			if err := existing.DataTo(&d); err == nil && !d.CreatedAt.IsZero() {
				stored.CreatedAt = d.CreatedAt
			}
		}
		stored.UpdatedAt = now

		return tx.Set(docRef, toKnowledgeDoc(stored))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to put knowledge", goerr.V("id", stored.ID))
	}

	return stored, nil
}

func (r *knowledgeRepository) Delete(ctx context.Context, id model.KnowledgeID) error {
	docRef := r.knowledgeCollection().Doc(string(id))

	_, err := docRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "knowledge not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get knowledge", goerr.V("id", id))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete knowledge", goerr.V("id", id))
	}

	return nil
}
