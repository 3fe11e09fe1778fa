package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autocrm/pkg/cli/config"
	"github.com/secmon-lab/autocrm/pkg/usecase"
	"github.com/secmon-lab/autocrm/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// appConfig bundles the configuration shared by commands that talk to the knowledge base
type appConfig struct {
	repoCfg config.Repository
	llmCfg  config.LLM
	chatCfg config.Chat
}

func (x *appConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.repoCfg.Flags()...)
	flags = append(flags, x.llmCfg.Flags()...)
	flags = append(flags, x.chatCfg.Flags()...)
	return flags
}

// build wires repository, LLM client and use cases. The returned closer releases the repository.
func (x *appConfig) build(ctx context.Context, c *cli.Command) (*usecase.UseCases, func(), error) {
	logger := logging.From(ctx)
	chat, err := x.chatCfg.Configure(c)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure chat")
	}
	x.llmCfg.Resolve(c, x.chatCfg.File())

	logger.Info("Runtime configuration",
		"repository", x.repoCfg.LogAttrs(),
		"llm", x.llmCfg.LogAttrs(),
		"chat", x.chatCfg.LogAttrs(),
	)

	repo, err := x.repoCfg.Configure(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure repository")
	}
	closer := func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close repository", "error", err)
		}
	}

	llmClient, err := x.llmCfg.Configure(ctx)
	if err != nil {
		closer()
		return nil, nil, goerr.Wrap(err, "failed to configure LLM")
	}

	opts := []usecase.Option{usecase.WithChatConfig(chat)}
	if llmClient != nil {
		opts = append(opts,
			usecase.WithEmbedder(llmClient),
			usecase.WithCompleter(llmClient),
		)
	} else {
		logger.Warn("LLM is not configured, questions will be answered with the error message")
	}

	return usecase.New(repo, opts...), closer, nil
}

