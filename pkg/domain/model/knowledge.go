package model

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeID is a UUID-based identifier for KnowledgeEntry
type KnowledgeID string

// NewKnowledgeID generates a new UUID v7 KnowledgeID
func NewKnowledgeID() KnowledgeID {
	return KnowledgeID(uuid.Must(uuid.NewV7()).String())
}

// KnowledgeEntry is a help passage used to ground assistant answers.
// Entries are maintained by the knowledge import process and are read-only for retrieval.
type KnowledgeEntry struct {
	ID        KnowledgeID
	Topic     string
	Subtopic  string
	Text      string // may be empty while the entry is still being authored
	Embedding RawEmbedding
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasText reports whether the entry carries non-empty text. Whitespace counts as text.
func (e *KnowledgeEntry) HasText() bool {
	return e.Text != ""
}

// Clone returns a deep copy of the entry
func (e *KnowledgeEntry) Clone() *KnowledgeEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Embedding = e.Embedding.Clone()
	return &c
}
