package usecase

import (
	"context"
	"math"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autocrm/pkg/domain/interfaces"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
	"github.com/secmon-lab/autocrm/pkg/service/retrieval"
	"github.com/secmon-lab/autocrm/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultImportConcurrency is the number of parallel embedding requests during import
const DefaultImportConcurrency = 4

// ImportOption holds options for knowledge import
type ImportOption struct {
	// Embed generates embeddings for entries that have text but no usable embedding
	Embed       bool
	Concurrency int
	// Prune deletes stored entries that are not part of the import, so the store mirrors the source
	Prune bool
}

// ImportResult summarises an import
type ImportResult struct {
	Imported int
	Embedded int
	Pruned   int
}

// KnowledgeUseCase maintains the knowledge base
type KnowledgeUseCase struct {
	repo     interfaces.Repository
	embedder interfaces.Embedder
}

// NewKnowledgeUseCase creates a new KnowledgeUseCase
func NewKnowledgeUseCase(repo interfaces.Repository, embedder interfaces.Embedder) *KnowledgeUseCase {
	return &KnowledgeUseCase{
		repo:     repo,
		embedder: embedder,
	}
}

// Import upserts entries. Input entries are not modified.
func (uc *KnowledgeUseCase) Import(ctx context.Context, entries []*model.KnowledgeEntry, opt ImportOption) (*ImportResult, error) {
	logger := logging.From(ctx)

	pending := make([]*model.KnowledgeEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			pending = append(pending, e.Clone())
		}
	}

	result := &ImportResult{}

	if opt.Embed {
		embedded, err := uc.embedMissing(ctx, pending, opt.Concurrency)
		if err != nil {
			return nil, err
		}
		result.Embedded = embedded
	}

	imported := make(map[model.KnowledgeID]struct{}, len(pending))
	for _, e := range pending {
		stored, err := uc.repo.Knowledge().Put(ctx, e)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to import knowledge", goerr.V(KnowledgeIDKey, e.ID))
		}
		imported[stored.ID] = struct{}{}
		result.Imported++
	}

	if opt.Prune {
		pruned, err := uc.prune(ctx, imported)
		if err != nil {
			return nil, err
		}
		result.Pruned = pruned
	}

	logger.Info("knowledge imported",
		"imported", result.Imported,
		"embedded", result.Embedded,
		"pruned", result.Pruned,
	)

	return result, nil
}

func (uc *KnowledgeUseCase) prune(ctx context.Context, keep map[model.KnowledgeID]struct{}) (int, error) {
	stored, err := uc.repo.Knowledge().ListAll(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list knowledge for pruning")
	}

	pruned := 0
	for _, e := range stored {
		if _, ok := keep[e.ID]; ok {
			continue
		}
		if err := uc.repo.Knowledge().Delete(ctx, e.ID); err != nil {
			return pruned, goerr.Wrap(err, "failed to prune knowledge", goerr.V(KnowledgeIDKey, e.ID))
		}
		pruned++
	}
	return pruned, nil
}

func needsEmbedding(e *model.KnowledgeEntry) bool {
	if !e.HasText() {
		return false
	}
	v, ok := retrieval.Normalize(e.Embedding)
	return !ok || len(v) == 0
}

func (uc *KnowledgeUseCase) embedMissing(ctx context.Context, entries []*model.KnowledgeEntry, concurrency int) (int, error) {
	targets := make([]*model.KnowledgeEntry, 0)
	for _, e := range entries {
		if needsEmbedding(e) {
			targets = append(targets, e)
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}
	if uc.embedder == nil {
		return 0, goerr.Wrap(ErrEmbedderNotConfigured, "failed to embed knowledge")
	}

	if concurrency <= 0 {
		concurrency = DefaultImportConcurrency
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)

	for _, e := range targets {
		eg.Go(func() error {
			vec, err := uc.embedder.Embed(ctx, e.Text)
			if err != nil {
				return goerr.Wrap(err, "failed to embed knowledge", goerr.V(KnowledgeIDKey, e.ID))
			}
			e.Embedding = model.NumericEmbedding(vec)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return 0, err
	}

	return len(targets), nil
}

// InspectProblem describes one entry that can not take part in ranking as stored
type InspectProblem struct {
	ID     model.KnowledgeID
	Reason string
}

// Problem reasons reported by Inspect
const (
	ReasonDecodeFailure     = "embedding can not be decoded"
	ReasonDimensionMismatch = "embedding dimension mismatch"
	ReasonNonFinite         = "embedding has non-numeric elements"
	ReasonMissingText       = "text is empty"
)

// InspectReport is a data quality report of the knowledge base
type InspectReport struct {
	Total               int
	Numeric             int
	Encoded             int
	DecodeFailures      int
	DimensionMismatches int
	NonFinite           int
	MissingText         int
	Problems            []InspectProblem
}

// Inspect reports entries that will be excluded or scored zero by retrieval.
// dimension <= 0 skips the dimension check.
func (uc *KnowledgeUseCase) Inspect(ctx context.Context, dimension int) (*InspectReport, error) {
	entries, err := uc.repo.Knowledge().ListAll(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list knowledge")
	}

	report := &InspectReport{
		Total:    len(entries),
		Problems: []InspectProblem{},
	}
	problem := func(id model.KnowledgeID, reason string) {
		report.Problems = append(report.Problems, InspectProblem{ID: id, Reason: reason})
	}

	for _, e := range entries {
		switch e.Embedding.Kind() {
		case model.EmbeddingKindNumeric:
			report.Numeric++
		case model.EmbeddingKindEncoded:
			report.Encoded++
		}

		if !e.HasText() {
			report.MissingText++
			problem(e.ID, ReasonMissingText)
		}

		vec, ok := retrieval.Normalize(e.Embedding)
		if !ok {
			report.DecodeFailures++
			problem(e.ID, ReasonDecodeFailure)
			continue
		}

		if dimension > 0 && len(vec) != dimension {
			report.DimensionMismatches++
			problem(e.ID, ReasonDimensionMismatch)
		}

		for _, f := range vec {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				report.NonFinite++
				problem(e.ID, ReasonNonFinite)
				break
			}
		}
	}

	return report, nil
}
