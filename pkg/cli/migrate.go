package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autocrm/pkg/cli/config"
	"github.com/secmon-lab/autocrm/pkg/repository/firestore"
	"github.com/secmon-lab/autocrm/pkg/service/llm"
	"github.com/secmon-lab/autocrm/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var (
		repoCfg   config.Repository
		dimension int
		dryRun    bool
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Usage:       "Dimension of the Firestore vector index",
			Value:       llm.DefaultDimension,
			Sources:     cli.EnvVars("AUTOCRM_EMBEDDING_DIMENSION"),
			Destination: &dimension,
		},
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Preview changes without applying (firestore only)",
			Destination: &dryRun,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Create the Firestore vector index or the PostgreSQL knowledge table",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("Migrate configuration",
				"repository", repoCfg.LogAttrs(),
				"dimension", dimension,
				"dryRun", dryRun)

			if err := repoCfg.Validate(); err != nil {
				return err
			}

			switch repoCfg.Backend() {
			case config.BackendFirestore:
				return migrateFirestore(ctx, &repoCfg, dimension, dryRun)
			case config.BackendPostgres:
				return migratePostgres(ctx, &repoCfg)
			default:
				logging.Default().Info("Nothing to migrate", "backend", repoCfg.Backend())
				return nil
			}
		},
	}
}

func migrateFirestore(ctx context.Context, repoCfg *config.Repository, dimension int, dryRun bool) error {
	logger := logging.Default()
	indexConfig := knowledgeIndexConfig(repoCfg.CollectionPrefix(), dimension)

	client, err := fireconf.New(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID(), indexConfig,
		fireconf.WithLogger(logger),
		fireconf.WithDryRun(dryRun))
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client",
			goerr.V("project_id", repoCfg.ProjectID()), goerr.V("database_id", repoCfg.DatabaseID()))
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
	} else {
		logger.Info("Applying migrations")
	}
	if err := client.Migrate(ctx); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	if !dryRun {
		logger.Info("Migrations applied successfully")
	}
	return nil
}

func migratePostgres(ctx context.Context, repoCfg *config.Repository) error {
	repo, err := repoCfg.ConfigurePostgres(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logging.Default().Error("failed to close postgres repository", "error", err)
		}
	}()

	if err := repo.Migrate(ctx); err != nil {
		return goerr.Wrap(err, "failed to migrate postgres schema")
	}
	logging.Default().Info("PostgreSQL schema applied")
	return nil
}

// knowledgeIndexConfig returns the vector index on knowledge embeddings
func knowledgeIndexConfig(prefix string, dimension int) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: firestore.CollectionName(prefix),
				Indexes: []fireconf.Index{
					{
						Fields: []fireconf.IndexField{
							{
								Path: "Embedding",
								Vector: &fireconf.VectorConfig{
									Dimension: dimension,
								},
							},
						},
					},
				},
			},
		},
	}
}
