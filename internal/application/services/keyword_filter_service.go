package services

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
	"github.com/zatekoja/keywordscout/pkg/utils"
)

const (
	DefaultMetricsBatchSize   = 50
	DefaultMetricsConcurrency = 4
)

// MetricsCalculator derives processed metrics for one record
type MetricsCalculator interface {
	Compute(record *entities.KeywordRecord) entities.KeywordMetrics
}

// KeywordFilterService narrows a candidate pool with raw and processed
// filters. Derived metrics are computed only for candidates that pass every
// raw filter.
type KeywordFilterService struct {
	calculator  MetricsCalculator
	batchSize   int
	concurrency int
	metrics     *observability.PipelineMetrics
}

// NewKeywordFilterService creates a filter service. Non-positive batch
// settings fall back to 50 records per batch and 4 batches in flight.
func NewKeywordFilterService(calculator MetricsCalculator, batchSize, concurrency int, metrics *observability.PipelineMetrics) *KeywordFilterService {
	if batchSize <= 0 {
		batchSize = DefaultMetricsBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultMetricsConcurrency
	}
	return &KeywordFilterService{
		calculator:  calculator,
		batchSize:   batchSize,
		concurrency: concurrency,
		metrics:     metrics,
	}
}

// PartitionFilters splits filters by metric kind. Filters on unknown metrics
// are dropped since they pass every record.
func PartitionFilters(filters []entities.Filter) (raw, processed []entities.Filter) {
	for _, f := range filters {
		switch f.Metric.Kind() {
		case entities.MetricKindRaw:
			raw = append(raw, f)
		case entities.MetricKindProcessed:
			processed = append(processed, f)
		case entities.MetricKindUnknown:
		}
	}
	return raw, processed
}

// Select returns at most targetCount candidates passing every filter and not
// in exclude, ordered by descending similarity. exclude holds normalized
// keywords. An empty result carries ReasonNoMoreMatches.
func (s *KeywordFilterService) Select(
	ctx context.Context,
	pool []entities.SimilarityCandidate,
	filters []entities.Filter,
	exclude map[string]struct{},
	targetCount int,
) (*entities.SelectionResult, error) {
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
	}
	if targetCount <= 0 {
		return emptySelection(), nil
	}

	raw, processed := PartitionFilters(filters)

	survivors := s.rawPass(pool, raw, exclude)
	if len(survivors) == 0 {
		s.metrics.RecordSelection(ctx, 0, 0, 0)
		return emptySelection(), nil
	}

	enriched, err := s.computeMetrics(ctx, survivors)
	if err != nil {
		return nil, err
	}
	computed := len(enriched)

	selected := enriched[:0]
	for _, kw := range enriched {
		if passesProcessed(kw.Metrics, processed) {
			selected = append(selected, kw)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].SimilarityScore > selected[j].SimilarityScore
	})
	if len(selected) > targetCount {
		selected = selected[:targetCount]
	}

	s.metrics.RecordSelection(ctx, len(survivors), computed, len(selected))
	if len(selected) == 0 {
		return emptySelection(), nil
	}
	return &entities.SelectionResult{Keywords: selected}, nil
}

func emptySelection() *entities.SelectionResult {
	return &entities.SelectionResult{
		Keywords: []entities.EnrichedKeyword{},
		Reason:   entities.ReasonNoMoreMatches,
	}
}

func (s *KeywordFilterService) rawPass(pool []entities.SimilarityCandidate, raw []entities.Filter, exclude map[string]struct{}) []entities.SimilarityCandidate {
	survivors := make([]entities.SimilarityCandidate, 0, len(pool))
	seen := make(map[string]struct{}, len(pool))

	for _, c := range pool {
		if c.Record == nil {
			continue
		}
		key := utils.NormalizeKeyword(c.Record.Keyword)
		if _, excluded := exclude[key]; excluded {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		if !passesRaw(c, raw) {
			continue
		}
		seen[key] = struct{}{}
		survivors = append(survivors, c)
	}
	return survivors
}

func passesRaw(c entities.SimilarityCandidate, filters []entities.Filter) bool {
	for _, f := range filters {
		value, ok := c.RawValue(f.Metric)
		if !ok {
			continue
		}
		if !f.Operator.Compare(utils.FiniteOrZero(value), f.Value) {
			return false
		}
	}
	return true
}

func passesProcessed(m entities.KeywordMetrics, filters []entities.Filter) bool {
	for _, f := range filters {
		value, ok := m.Value(f.Metric)
		if !ok {
			continue
		}
		if !f.Operator.Compare(utils.FiniteOrZero(value), f.Value) {
			return false
		}
	}
	return true
}

// computeMetrics enriches survivors in fixed-size batches with a bounded
// number of batches in flight. Output order matches input order.
func (s *KeywordFilterService) computeMetrics(ctx context.Context, survivors []entities.SimilarityCandidate) ([]entities.EnrichedKeyword, error) {
	out := make([]entities.EnrichedKeyword, len(survivors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for start := 0; start < len(survivors); start += s.batchSize {
		end := min(start+s.batchSize, len(survivors))
		batchStart, batchEnd := start, end
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := batchStart; i < batchEnd; i++ {
				c := survivors[i]
				out[i] = entities.EnrichedKeyword{
					KeywordRecord:   c.Record,
					SimilarityScore: c.SimilarityScore,
					Metrics:         s.calculator.Compute(c.Record),
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("metric computation interrupted: %w", err)
	}
	return out, nil
}

// EnrichAll computes metrics for every record with the same batching as
// Select. Records keep their order; similarity scores are left at zero.
func (s *KeywordFilterService) EnrichAll(ctx context.Context, records []*entities.KeywordRecord) ([]entities.EnrichedKeyword, error) {
	pool := make([]entities.SimilarityCandidate, 0, len(records))
	for _, r := range records {
		if r != nil {
			pool = append(pool, entities.SimilarityCandidate{Record: r})
		}
	}
	return s.computeMetrics(ctx, pool)
}
