package model

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/autocrm/pkg/domain/types"
)

// SessionID is a UUID-based identifier for ConversationSession
type SessionID string

// NewSessionID generates a new UUID v7 SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.Must(uuid.NewV7()).String())
}

// ConversationTurn is one message of a help conversation
type ConversationTurn struct {
	Role      types.Role `json:"role"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewUserTurn creates a turn authored by the user
func NewUserTurn(content string) ConversationTurn {
	return ConversationTurn{Role: types.RoleUser, Content: content, CreatedAt: time.Now().UTC()}
}

// NewAssistantTurn creates a turn authored by the assistant
func NewAssistantTurn(content string) ConversationTurn {
	return ConversationTurn{Role: types.RoleAssistant, Content: content, CreatedAt: time.Now().UTC()}
}

// ConversationSession is an append-only log of turns.
// The log is never trimmed; callers window it with Recent.
type ConversationSession struct {
	id        SessionID
	createdAt time.Time

	mu    sync.RWMutex
	turns []ConversationTurn
}

// NewConversationSession creates an empty session with a fresh ID
func NewConversationSession() *ConversationSession {
	return &ConversationSession{
		id:        NewSessionID(),
		createdAt: time.Now().UTC(),
	}
}

// ID returns the session ID
func (s *ConversationSession) ID() SessionID {
	return s.id
}

// CreatedAt returns when the session was started
func (s *ConversationSession) CreatedAt() time.Time {
	return s.createdAt
}

// Append adds a turn to the end of the log
func (s *ConversationSession) Append(turn ConversationTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
}

// Recent returns the last n turns in chronological order.
// n <= 0 returns an empty slice; n larger than the log returns the whole log.
func (s *ConversationSession) Recent(n int) []ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 {
		return []ConversationTurn{}
	}
	start := len(s.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]ConversationTurn, len(s.turns)-start)
	copy(out, s.turns[start:])
	return out
}

// Turns returns a copy of the whole log
func (s *ConversationSession) Turns() []ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ConversationTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns
func (s *ConversationSession) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}
