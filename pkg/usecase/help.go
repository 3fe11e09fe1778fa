package usecase

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autocrm/pkg/domain/interfaces"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
	"github.com/secmon-lab/autocrm/pkg/domain/model/config"
	"github.com/secmon-lab/autocrm/pkg/service/retrieval"
	"github.com/secmon-lab/autocrm/pkg/utils/errutil"
	"github.com/secmon-lab/autocrm/pkg/utils/logging"
)

// chatSession is a conversation plus a flag set while a question is being answered
type chatSession struct {
	session *model.ConversationSession
	busy    atomic.Bool
}

// HelpUseCase answers help questions grounded on the knowledge base
type HelpUseCase struct {
	repo      interfaces.Repository
	embedder  interfaces.Embedder
	completer interfaces.Completer
	chat      *config.ChatConfig
	assembler *retrieval.Assembler

	mu       sync.RWMutex
	sessions map[model.SessionID]*chatSession
}

// NewHelpUseCase creates a new HelpUseCase. A nil chat config uses the defaults.
func NewHelpUseCase(repo interfaces.Repository, embedder interfaces.Embedder, completer interfaces.Completer, chat *config.ChatConfig) *HelpUseCase {
	if chat == nil {
		chat = config.DefaultChatConfig()
	}

	return &HelpUseCase{
		repo:      repo,
		embedder:  embedder,
		completer: completer,
		chat:      chat,
		assembler: retrieval.NewAssembler(
			retrieval.WithHistoryWindow(chat.HistoryWindow),
			retrieval.WithAppName(chat.AppName),
			retrieval.WithFallbackMessage(chat.FallbackMessage),
		),
		sessions: make(map[model.SessionID]*chatSession),
	}
}

// StartSession creates an empty conversation
func (uc *HelpUseCase) StartSession(ctx context.Context) *model.ConversationSession {
	s := model.NewConversationSession()

	uc.mu.Lock()
	uc.sessions[s.ID()] = &chatSession{session: s}
	uc.mu.Unlock()

	logging.From(ctx).Debug("chat session started", "session_id", s.ID())
	return s
}

// GetSession returns a conversation by ID
func (uc *HelpUseCase) GetSession(ctx context.Context, id model.SessionID) (*model.ConversationSession, error) {
	cs, err := uc.lookup(id)
	if err != nil {
		return nil, err
	}
	return cs.session, nil
}

// DeleteSession drops a conversation
func (uc *HelpUseCase) DeleteSession(ctx context.Context, id model.SessionID) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if _, ok := uc.sessions[id]; !ok {
		return goerr.Wrap(ErrSessionNotFound, "failed to delete chat session", goerr.V(SessionIDKey, id))
	}
	delete(uc.sessions, id)
	return nil
}

// ListSessionIDs returns the IDs of all conversations in ascending order
func (uc *HelpUseCase) ListSessionIDs(ctx context.Context) []model.SessionID {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	ids := make([]model.SessionID, 0, len(uc.sessions))
	for id := range uc.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (uc *HelpUseCase) lookup(id model.SessionID) (*chatSession, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	cs, ok := uc.sessions[id]
	if !ok {
		return nil, goerr.Wrap(ErrSessionNotFound, "chat session not found", goerr.V(SessionIDKey, id))
	}
	return cs, nil
}

// Ask appends the question to the session and answers it with exactly one assistant turn.
// Failures of the embedder, the knowledge store or the completer are logged and answered with
// the configured error message; only caller errors are returned.
func (uc *HelpUseCase) Ask(ctx context.Context, id model.SessionID, question string) (*model.ConversationTurn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, goerr.Wrap(ErrEmptyQuestion, "failed to ask", goerr.V(SessionIDKey, id))
	}

	cs, err := uc.lookup(id)
	if err != nil {
		return nil, err
	}

	if !cs.busy.CompareAndSwap(false, true) {
		return nil, goerr.Wrap(ErrSessionBusy, "failed to ask", goerr.V(SessionIDKey, id))
	}
	defer cs.busy.Store(false)

	history := cs.session.Turns()
	cs.session.Append(model.NewUserTurn(question))

	if uc.chat.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.chat.Timeout)
		defer cancel()
	}

	reply, err := uc.answer(ctx, question, history)
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to answer help question", goerr.V(SessionIDKey, id)), "help answer failed")
		reply = uc.chat.ErrorMessage
		if reply == "" {
			reply = config.DefaultErrorMessage
		}
	}

	turn := model.NewAssistantTurn(reply)
	cs.session.Append(turn)
	return &turn, nil
}

func (uc *HelpUseCase) answer(ctx context.Context, question string, history []model.ConversationTurn) (string, error) {
	logger := logging.From(ctx)

	ranked, err := uc.rank(ctx, question, uc.chat.Limit)
	if err != nil {
		return "", err
	}

	asm, err := uc.assembler.Assemble(ranked, question, history)
	if err != nil {
		return "", err
	}

	logger.Debug("help context assembled",
		"ranked", len(ranked),
		"decision", asm.Decision,
	)

	if !asm.Decision.HasContext() {
		return asm.Fallback, nil
	}

	if uc.completer == nil {
		return "", goerr.Wrap(ErrCompleterNotConfigured, "failed to complete answer")
	}

	reply, err := uc.completer.Complete(ctx, asm.Prompt)
	if err != nil {
		return "", goerr.Wrap(err, "failed to complete answer")
	}

	return reply, nil
}

func (uc *HelpUseCase) rank(ctx context.Context, question string, limit int) ([]model.ScoredEntry, error) {
	if uc.embedder == nil {
		return nil, goerr.Wrap(ErrEmbedderNotConfigured, "failed to embed question")
	}

	query, err := uc.embedder.Embed(ctx, question)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed question")
	}

	entries, err := uc.repo.Knowledge().ListAll(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list knowledge")
	}

	return retrieval.Rank(query, entries, uc.chat.MinScore, limit), nil
}

// Search embeds the question and returns the ranked knowledge without generating an answer.
// limit <= 0 uses the configured limit.
func (uc *HelpUseCase) Search(ctx context.Context, question string, limit int) ([]model.ScoredEntry, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, goerr.Wrap(ErrEmptyQuestion, "failed to search knowledge")
	}
	if limit <= 0 {
		limit = uc.chat.Limit
	}

	return uc.rank(ctx, question, limit)
}
