package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
	"github.com/secmon-lab/autocrm/pkg/service/source"
	"github.com/secmon-lab/autocrm/pkg/usecase"
	"github.com/urfave/cli/v3"
)

var (
	promptColor    = color.New(color.FgCyan, color.Bold)
	assistantColor = color.New(color.FgGreen)
	noticeColor    = color.New(color.FgYellow)
)

func cmdAsk() *cli.Command {
	var (
		question      string
		knowledgeFile string
		app           appConfig
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "question",
			Aliases:     []string{"q"},
			Usage:       "Ask a single question and exit",
			Destination: &question,
		},
		&cli.StringFlag{
			Name:        "knowledge-file",
			Usage:       "Knowledge JSON file (local path or gs://bucket/object) imported before chatting",
			Sources:     cli.EnvVars("AUTOCRM_KNOWLEDGE_FILE"),
			Destination: &knowledgeFile,
		},
	}
	flags = append(flags, app.Flags()...)

	return &cli.Command{
		Name:  "ask",
		Usage: "Chat with the help assistant in the terminal",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closeRepo, err := app.build(ctx, c)
			if err != nil {
				return err
			}
			defer closeRepo()

			if knowledgeFile != "" {
				entries, err := source.Load(ctx, knowledgeFile)
				if err != nil {
					return err
				}
				if _, err := uc.Knowledge.Import(ctx, entries, usecase.ImportOption{}); err != nil {
					return goerr.Wrap(err, "failed to import knowledge file")
				}
			}

			session := uc.Help.StartSession(ctx)

			if question != "" {
				return askOnce(ctx, uc.Help, session.ID(), question, os.Stdout)
			}
			return chatLoop(ctx, uc.Help, session.ID(), os.Stdin, os.Stdout)
		},
	}
}

func askOnce(ctx context.Context, help *usecase.HelpUseCase, id model.SessionID, question string, w io.Writer) error {
	turn, err := help.Ask(ctx, id, question)
	if err != nil {
		return err
	}
	_, _ = assistantColor.Fprintln(w, turn.Content)
	return nil
}

func chatLoop(ctx context.Context, help *usecase.HelpUseCase, id model.SessionID, r io.Reader, w io.Writer) error {
	_, _ = noticeColor.Fprintln(w, "Ask a question about the application. Type \"exit\" or press Ctrl-D to quit.")

	scanner := bufio.NewScanner(r)
	for {
		_, _ = promptColor.Fprint(w, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(w)
			if err := scanner.Err(); err != nil {
				return goerr.Wrap(err, "failed to read input")
			}
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		turn, err := help.Ask(ctx, id, line)
		if err != nil {
			if errors.Is(err, usecase.ErrEmptyQuestion) {
				continue
			}
			return err
		}
		_, _ = assistantColor.Fprintf(w, "assistant> %s\n\n", turn.Content)

		if ctx.Err() != nil {
			return nil
		}
	}
}
