package postgres

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pgvector/pgvector-go"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
)

const defaultKnowledgeTable = "knowledge_base"

var knowledgeColumns = []string{
	"id", "topic", "subtopic", "text", "embedding::text", "embedding_raw", "created_at", "updated_at",
}

type knowledgeRepository struct {
	pool  *pgxpool.Pool
	table string
}

func newKnowledgeRepository(pool *pgxpool.Pool) *knowledgeRepository {
	return &knowledgeRepository{
		pool:  pool,
		table: defaultKnowledgeTable,
	}
}

// quotedTable returns the table name quoted as an SQL identifier
func (r *knowledgeRepository) quotedTable() string {
	return pgx.Identifier{r.table}.Sanitize()
}

func (r *knowledgeRepository) schema() string {
	return strings.Replace(schemaSQL, defaultKnowledgeTable, r.quotedTable(), 1)
}

func psql() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// toColumns splits an embedding into the vector column and the raw text column.
// Only non-empty finite vectors go to the vector column, which rejects NaN and empty values;
// everything else is kept as JSON text and decoded at retrieval time.
func toColumns(raw model.RawEmbedding) (any, any) {
	if v, ok := raw.Vector(); ok {
		if f32, ok := toFloat32(v); ok {
			return pgvector.NewVector(f32), nil
		}
	}
	if s, ok := raw.Text(); ok {
		return nil, s
	}
	return nil, nil
}

func fromColumns(vector, rawText *string) model.RawEmbedding {
	if vector != nil {
		var vec pgvector.Vector
		if err := vec.Scan(*vector); err == nil {
			return model.RawEmbeddingFromAny(vec.Slice())
		}
		return model.EncodedEmbedding(*vector)
	}
	if rawText != nil {
		return model.EncodedEmbedding(*rawText)
	}
	return model.InvalidEmbedding()
}

// toFloat32 narrows v for the vector column. ok is false when an element overflows float32.
func toFloat32(v []float64) ([]float32, bool) {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
		if math.IsInf(float64(out[i]), 0) {
			return nil, false
		}
	}
	return out, true
}

func scanKnowledge(row pgx.Row) (*model.KnowledgeEntry, error) {
	var (
		k       model.KnowledgeEntry
		vector  *string
		rawText *string
	)
	if err := row.Scan(&k.ID, &k.Topic, &k.Subtopic, &k.Text, &vector, &rawText, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	k.Embedding = fromColumns(vector, rawText)
	k.CreatedAt = k.CreatedAt.UTC()
	k.UpdatedAt = k.UpdatedAt.UTC()
	return &k, nil
}

func (r *knowledgeRepository) ListAll(ctx context.Context) ([]*model.KnowledgeEntry, error) {
	query, args, err := psql().Select(knowledgeColumns...).From(r.quotedTable()).OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build query")
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query knowledge")
	}
	defer rows.Close()

	entries := make([]*model.KnowledgeEntry, 0)
	for rows.Next() {
		k, err := scanKnowledge(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan knowledge")
		}
		entries = append(entries, k)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate knowledge")
	}

	return entries, nil
}

func (r *knowledgeRepository) Get(ctx context.Context, id model.KnowledgeID) (*model.KnowledgeEntry, error) {
	query, args, err := psql().Select(knowledgeColumns...).From(r.quotedTable()).
		Where(squirrel.Eq{"id": string(id)}).ToSql()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build query")
	}

	k, err := scanKnowledge(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "knowledge not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get knowledge", goerr.V("id", id))
	}

	return k, nil
}

func (r *knowledgeRepository) Put(ctx context.Context, entry *model.KnowledgeEntry) (*model.KnowledgeEntry, error) {
	stored := entry.Clone()
	if stored.ID == "" {
		stored.ID = model.NewKnowledgeID()
	}
	now := time.Now().UTC()
	vector, rawText := toColumns(stored.Embedding)

	query, args, err := psql().Insert(r.quotedTable()).
		Columns("id", "topic", "subtopic", "text", "embedding", "embedding_raw", "created_at", "updated_at").
		Values(string(stored.ID), stored.Topic, stored.Subtopic, stored.Text, vector, rawText, now, now).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			topic = EXCLUDED.topic,
			subtopic = EXCLUDED.subtopic,
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding,
			embedding_raw = EXCLUDED.embedding_raw,
			updated_at = EXCLUDED.updated_at
			RETURNING created_at, updated_at`).
		ToSql()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build query")
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&stored.CreatedAt, &stored.UpdatedAt); err != nil {
		return nil, goerr.Wrap(err, "failed to put knowledge", goerr.V("id", stored.ID))
	}
	stored.CreatedAt = stored.CreatedAt.UTC()
	stored.UpdatedAt = stored.UpdatedAt.UTC()

	return stored, nil
}

func (r *knowledgeRepository) Delete(ctx context.Context, id model.KnowledgeID) error {
	query, args, err := psql().Delete(r.quotedTable()).Where(squirrel.Eq{"id": string(id)}).ToSql()
	if err != nil {
		return goerr.Wrap(err, "failed to build query")
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return goerr.Wrap(err, "failed to delete knowledge", goerr.V("id", id))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(ErrNotFound, "knowledge not found", goerr.V("id", id))
	}

	return nil
}
