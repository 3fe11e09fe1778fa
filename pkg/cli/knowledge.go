package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autocrm/pkg/service/source"
	"github.com/secmon-lab/autocrm/pkg/usecase"
	"github.com/secmon-lab/autocrm/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdKnowledge() *cli.Command {
	return &cli.Command{
		Name:    "knowledge",
		Aliases: []string{"k"},
		Usage:   "Manage the help knowledge base",
		Commands: []*cli.Command{
			cmdKnowledgeImport(),
			cmdKnowledgeSearch(),
			cmdKnowledgeInspect(),
		},
	}
}

func cmdKnowledgeImport() *cli.Command {
	var (
		embed       bool
		prune       bool
		concurrency int
		app         appConfig
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "embed",
			Usage:       "Generate embeddings for entries that have text but no usable embedding",
			Destination: &embed,
		},
		&cli.BoolFlag{
			Name:        "prune",
			Usage:       "Delete stored entries that are not in the imported file",
			Destination: &prune,
		},
		&cli.IntFlag{
			Name:        "concurrency",
			Usage:       "Number of parallel embedding requests",
			Value:       usecase.DefaultImportConcurrency,
			Destination: &concurrency,
		},
	}
	flags = append(flags, app.Flags()...)

	return &cli.Command{
		Name:      "import",
		Usage:     "Import knowledge entries from a JSON file or gs://bucket/object",
		ArgsUsage: "<location>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			location := c.Args().First()
			if location == "" {
				return goerr.New("knowledge location is required")
			}

			uc, closeRepo, err := app.build(ctx, c)
			if err != nil {
				return err
			}
			defer closeRepo()

			entries, err := source.Load(ctx, location)
			if err != nil {
				return err
			}

			result, err := uc.Knowledge.Import(ctx, entries, usecase.ImportOption{
				Embed:       embed,
				Prune:       prune,
				Concurrency: concurrency,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to import knowledge", goerr.V("location", location))
			}

			logging.From(ctx).Info("Knowledge imported",
				"location", location,
				"imported", result.Imported,
				"embedded", result.Embedded,
				"pruned", result.Pruned)
			return nil
		},
	}
}

func cmdKnowledgeSearch() *cli.Command {
	var (
		limit  int
		asJSON bool
		app    appConfig
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "top",
			Aliases:     []string{"n"},
			Usage:       "Number of results (0 uses the configured limit)",
			Destination: &limit,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print results as JSON",
			Destination: &asJSON,
		},
	}
	flags = append(flags, app.Flags()...)

	return &cli.Command{
		Name:      "search",
		Usage:     "Show the knowledge entries that would be used to answer a question",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			question := c.Args().First()

			uc, closeRepo, err := app.build(ctx, c)
			if err != nil {
				return err
			}
			defer closeRepo()

			results, err := uc.Help.Search(ctx, question, limit)
			if err != nil {
				return err
			}

			if asJSON {
				type item struct {
					ID         string  `json:"id"`
					Topic      string  `json:"topic"`
					Subtopic   string  `json:"subtopic"`
					Similarity float64 `json:"similarity"`
				}
				items := make([]item, 0, len(results))
				for _, r := range results {
					items = append(items, item{
						ID:         string(r.Entry.ID),
						Topic:      r.Entry.Topic,
						Subtopic:   r.Entry.Subtopic,
						Similarity: r.Similarity,
					})
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}

			if len(results) == 0 {
				_, _ = noticeColor.Println("No relevant knowledge found")
				return nil
			}
			score := color.New(color.FgMagenta)
			for i, r := range results {
				fmt.Printf("%2d. %s ", i+1, score.Sprintf("%.4f", r.Similarity))
				fmt.Printf("%s / %s (%s)\n", r.Entry.Topic, r.Entry.Subtopic, r.Entry.ID)
			}
			return nil
		},
	}
}

func cmdKnowledgeInspect() *cli.Command {
	var (
		dimension int
		app       appConfig
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "expect-dimension",
			Usage:       "Report embeddings whose length differs from this value (0 to skip)",
			Destination: &dimension,
		},
	}
	flags = append(flags, app.Flags()...)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Report knowledge entries that can not be used by retrieval",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closeRepo, err := app.build(ctx, c)
			if err != nil {
				return err
			}
			defer closeRepo()

			report, err := uc.Knowledge.Inspect(ctx, dimension)
			if err != nil {
				return err
			}

			fmt.Printf("total: %d (numeric: %d, encoded: %d)\n", report.Total, report.Numeric, report.Encoded)
			fmt.Printf("decode failures: %d\n", report.DecodeFailures)
			fmt.Printf("dimension mismatches: %d\n", report.DimensionMismatches)
			fmt.Printf("non-numeric elements: %d\n", report.NonFinite)
			fmt.Printf("missing text: %d\n", report.MissingText)

			warn := color.New(color.FgRed)
			for _, p := range report.Problems {
				_, _ = warn.Printf("  %s: %s\n", p.ID, p.Reason)
			}
			return nil
		},
	}
}
