package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autocrm/pkg/cli/config"
	httpctrl "github.com/secmon-lab/autocrm/pkg/controller/http"
	"github.com/secmon-lab/autocrm/pkg/service/source"
	"github.com/secmon-lab/autocrm/pkg/service/worker"
	"github.com/secmon-lab/autocrm/pkg/usecase"
	"github.com/secmon-lab/autocrm/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe(sentryCfg *config.Sentry) *cli.Command {
	var (
		addr           string
		knowledgeFile  string
		watchKnowledge bool
		embedOnImport  bool
		app            appConfig
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Aliases:     []string{"a"},
			Usage:       "HTTP server address",
			Value:       "127.0.0.1:8080",
			Sources:     cli.EnvVars("AUTOCRM_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "knowledge-file",
			Usage:       "Knowledge JSON file (local path or gs://bucket/object) imported at startup",
			Sources:     cli.EnvVars("AUTOCRM_KNOWLEDGE_FILE"),
			Destination: &knowledgeFile,
		},
		&cli.BoolFlag{
			Name:        "watch-knowledge",
			Usage:       "Re-import the local knowledge file when it changes",
			Sources:     cli.EnvVars("AUTOCRM_WATCH_KNOWLEDGE"),
			Destination: &watchKnowledge,
		},
		&cli.BoolFlag{
			Name:        "embed",
			Usage:       "Generate missing embeddings when importing the knowledge file",
			Sources:     cli.EnvVars("AUTOCRM_EMBED"),
			Destination: &embedOnImport,
		},
	}
	flags = append(flags, app.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the help chat HTTP API",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			uc, closeRepo, err := app.build(ctx, c)
			if err != nil {
				return err
			}
			defer closeRepo()

			reload := func(ctx context.Context) error {
				entries, err := source.Load(ctx, knowledgeFile)
				if err != nil {
					return err
				}
				result, err := uc.Knowledge.Import(ctx, entries, usecase.ImportOption{
					Embed: embedOnImport,
					Prune: watchKnowledge,
				})
				if err != nil {
					return err
				}
				logging.From(ctx).Info("Knowledge imported",
					"location", knowledgeFile,
					"imported", result.Imported,
					"embedded", result.Embedded,
					"pruned", result.Pruned)
				return nil
			}

			if knowledgeFile != "" {
				if err := reload(ctx); err != nil {
					return goerr.Wrap(err, "failed to import knowledge file", goerr.V("location", knowledgeFile))
				}
			}

			var watcher *worker.KnowledgeWatcher
			if watchKnowledge {
				if knowledgeFile == "" || source.IsGCS(knowledgeFile) {
					return goerr.New("--watch-knowledge requires a local --knowledge-file", goerr.V("location", knowledgeFile))
				}
				watcher, err = worker.NewKnowledgeWatcher(knowledgeFile, reload)
				if err != nil {
					return goerr.Wrap(err, "failed to create knowledge watcher")
				}
				if err := watcher.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start knowledge watcher")
				}
			}

			httpHandler, err := httpctrl.New(uc.Help, httpctrl.WithSentry(sentryCfg.Enabled()))
			if err != nil {
				return goerr.Wrap(err, "failed to create http server")
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", "addr", addr, "watch", watchKnowledge)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				if watcher != nil {
					watcher.Stop()
				}
				return err
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", "signal", sig)

				if watcher != nil {
					watcher.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logger.Info("Server shutdown completed")
				return nil
			}
		},
	}
}
