package usecase

import (
	"github.com/secmon-lab/autocrm/pkg/domain/interfaces"
	"github.com/secmon-lab/autocrm/pkg/domain/model/config"
)

type UseCases struct {
	repo       interfaces.Repository
	embedder   interfaces.Embedder
	completer  interfaces.Completer
	chatConfig *config.ChatConfig

	Help      *HelpUseCase
	Knowledge *KnowledgeUseCase
}

type Option func(*UseCases)

func WithEmbedder(embedder interfaces.Embedder) Option {
	return func(uc *UseCases) {
		uc.embedder = embedder
	}
}

func WithCompleter(completer interfaces.Completer) Option {
	return func(uc *UseCases) {
		uc.completer = completer
	}
}

func WithChatConfig(cfg *config.ChatConfig) Option {
	return func(uc *UseCases) {
		uc.chatConfig = cfg
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:       repo,
		chatConfig: config.DefaultChatConfig(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Help = NewHelpUseCase(repo, uc.embedder, uc.completer, uc.chatConfig)
	uc.Knowledge = NewKnowledgeUseCase(repo, uc.embedder)

	return uc
}
