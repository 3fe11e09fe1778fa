package postgres

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autocrm/pkg/domain/interfaces"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL for the knowledge table
func Schema() string {
	return schemaSQL
}

// Postgres stores knowledge in a PostgreSQL database with the pgvector extension,
// such as a Supabase project.
type Postgres struct {
	pool      *pgxpool.Pool
	knowledge *knowledgeRepository
}

var _ interfaces.Repository = &Postgres{}

type Option func(*Postgres)

// WithTableName overrides the knowledge table name
func WithTableName(name string) Option {
	return func(p *Postgres) {
		if name != "" {
			p.knowledge.table = name
		}
	}
}

// New connects to the database and verifies the connection
func New(ctx context.Context, dsn string, opts ...Option) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse database config")
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to ping database",
			goerr.V("host", poolConfig.ConnConfig.Host),
			goerr.V("database", poolConfig.ConnConfig.Database))
	}

	p := &Postgres{
		pool:      pool,
		knowledge: newKnowledgeRepository(pool),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Migrate creates the knowledge table when it does not exist
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, p.knowledge.schema()); err != nil {
		return goerr.Wrap(err, "failed to apply schema", goerr.V("table", p.knowledge.table))
	}
	return nil
}

func (p *Postgres) Knowledge() interfaces.KnowledgeRepository {
	return p.knowledge
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
