package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics instruments the discovery and collection pipeline. A nil
// *PipelineMetrics records nothing.
type PipelineMetrics struct {
	CandidatesScored   metric.Int64Counter
	RawSurvivors       metric.Int64Counter
	ProcessedSurvivors metric.Int64Counter
	MetricsComputed    metric.Int64Counter
	SeedsFailed        metric.Int64Counter
	KeywordsCollected  metric.Int64Counter
	SimilarityDuration metric.Float64Histogram
}

// InitPipelineMetrics creates the pipeline instruments on the global meter
func InitPipelineMetrics() (*PipelineMetrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &PipelineMetrics{}

	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.CandidatesScored, "keywords.similarity.candidates", "Corpus keywords scored against a query"},
		{&m.RawSurvivors, "keywords.filter.raw_survivors", "Candidates passing raw filters"},
		{&m.ProcessedSurvivors, "keywords.filter.processed_survivors", "Candidates passing processed filters"},
		{&m.MetricsComputed, "keywords.metrics.computed", "Keywords run through the metrics engine"},
		{&m.SeedsFailed, "keywords.collector.seeds_failed", "Seed queries that failed or timed out"},
		{&m.KeywordsCollected, "keywords.collector.collected", "Net-new keywords collected"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	duration, err := meter.Float64Histogram(
		"keywords.similarity.duration",
		metric.WithDescription("Similarity query duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	m.SimilarityDuration = duration

	return m, nil
}

func (m *PipelineMetrics) add(ctx context.Context, counter metric.Int64Counter, n int, attrs ...attribute.KeyValue) {
	if m == nil || counter == nil || n == 0 {
		return
	}
	counter.Add(ctx, int64(n), metric.WithAttributes(attrs...))
}

// RecordCandidates records a similarity query and the candidates it scored
func (m *PipelineMetrics) RecordCandidates(ctx context.Context, n int, duration time.Duration) {
	if m == nil {
		return
	}
	m.add(ctx, m.CandidatesScored, n)
	m.SimilarityDuration.Record(ctx, float64(duration.Milliseconds()))
}

// RecordSelection records survivors of both filter phases
func (m *PipelineMetrics) RecordSelection(ctx context.Context, raw, computed, processed int) {
	if m == nil {
		return
	}
	m.add(ctx, m.RawSurvivors, raw)
	m.add(ctx, m.MetricsComputed, computed)
	m.add(ctx, m.ProcessedSurvivors, processed)
}

// RecordSeedFailure records one skipped seed
func (m *PipelineMetrics) RecordSeedFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.add(ctx, m.SeedsFailed, 1, attribute.String("reason", reason))
}

// RecordCollected records net-new keywords added by a collection run
func (m *PipelineMetrics) RecordCollected(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.add(ctx, m.KeywordsCollected, n)
}
