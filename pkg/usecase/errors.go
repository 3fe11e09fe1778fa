package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Caller errors of the help chat
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrSessionNotFound = errors.New("chat session not found")
	ErrSessionBusy     = errors.New("chat session is answering another question")

	// Configuration errors
	ErrEmbedderNotConfigured  = errors.New("embedder is not configured")
	ErrCompleterNotConfigured = errors.New("completer is not configured")
)

// Context keys for error values
const (
	SessionIDKey   = "session_id"
	KnowledgeIDKey = "knowledge_id"
)
