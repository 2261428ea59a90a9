package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/repositories"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
)

// KeywordMetricsWriter persists scored keywords in fixed-size batches with a
// bounded number of concurrent writers
type KeywordMetricsWriter struct {
	repo        repositories.KeywordMetricsRepository
	batchSize   int
	concurrency int
}

// NewKeywordMetricsWriter creates a writer. Non-positive sizes fall back to
// 100 keywords per batch and 2 writers.
func NewKeywordMetricsWriter(repo repositories.KeywordMetricsRepository, batchSize, concurrency int) *KeywordMetricsWriter {
	if batchSize <= 0 {
		batchSize = 100
	}
	if concurrency <= 0 {
		concurrency = 2
	}
	return &KeywordMetricsWriter{repo: repo, batchSize: batchSize, concurrency: concurrency}
}

// Write stores every keyword for the run. The first failing batch cancels
// the batches not yet started.
func (w *KeywordMetricsWriter) Write(ctx context.Context, runID string, keywords []entities.EnrichedKeyword) error {
	if len(keywords) == 0 {
		return nil
	}
	ctx, span := observability.StartSpan(ctx, "KeywordMetricsWriter.Write")
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for start := 0; start < len(keywords); start += w.batchSize {
		batch := keywords[start:min(start+w.batchSize, len(keywords))]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return w.repo.UpsertBatch(gctx, runID, batch)
		})
	}

	if err := g.Wait(); err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("failed to persist keyword metrics for run %s: %w", runID, err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("run_id", runID).
		Int("keywords", len(keywords)).
		Msg("Persisted keyword metrics")
	return nil
}
