package memory

import (
	"github.com/secmon-lab/autocrm/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory keeps all records in process memory. It is used for local runs and tests.
type Memory struct {
	knowledge *knowledgeRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		knowledge: newKnowledgeRepository(),
	}
}

func (m *Memory) Knowledge() interfaces.KnowledgeRepository {
	return m.knowledge
}

func (m *Memory) Close() error {
	return nil
}
