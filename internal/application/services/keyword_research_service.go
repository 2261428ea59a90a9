package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/providers"
	"github.com/zatekoja/keywordscout/internal/domain/repositories"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	"github.com/zatekoja/keywordscout/pkg/config"
	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
	"github.com/zatekoja/keywordscout/pkg/utils"
)

const (
	// topOpportunityCount is how many keywords the report summary names
	topOpportunityCount = 5

	// sinkWriteTimeout bounds one checkpoint save or bus publish
	sinkWriteTimeout = 5 * time.Second

	defaultQueryTimeout = 20 * time.Second
)

// TextSimilarity scores two free texts against each other
type TextSimilarity interface {
	CalculateTextSimilarity(ctx context.Context, a, b string) (float64, error)
}

// KeywordEnricher computes metrics for corpus records
type KeywordEnricher interface {
	EnrichAll(ctx context.Context, records []*entities.KeywordRecord) ([]entities.EnrichedKeyword, error)
}

// SimilarityIndex answers both pool queries and pairwise text scoring
type SimilarityIndex interface {
	SimilaritySearcher
	TextSimilarity
}

// KeywordFilter selects from candidate pools and enriches corpus records
type KeywordFilter interface {
	KeywordSelector
	KeywordEnricher
}

// KeywordCollector runs the seed-driven collection loop
type KeywordCollector interface {
	Collect(ctx context.Context, req CollectRequest, onProgress ProgressFunc) (*CollectResult, error)
}

// DiscoverRequest is a single-query discovery. Passing previously returned
// keywords in Exclude yields the next page of matches.
type DiscoverRequest struct {
	Pitch       string            `json:"pitch"`
	Filters     []entities.Filter `json:"filters,omitempty"`
	Exclude     []string          `json:"exclude,omitempty"`
	TargetCount int               `json:"target_count,omitempty"`
	PoolSize    int               `json:"pool_size,omitempty"`
}

// ResearchRequest starts a full research run
type ResearchRequest struct {
	RunID       string             `json:"run_id,omitempty"`
	Input       entities.IdeaInput `json:"input"`
	TargetCount int                `json:"target_count,omitempty"`
	Filters     []entities.Filter  `json:"filters,omitempty"`
	Exclude     []string           `json:"exclude,omitempty"`
}

// KeywordResearchService drives discovery and full research runs
type KeywordResearchService struct {
	corpus      repositories.CorpusRepository
	similarity  SimilaritySearcher
	texts       TextSimilarity
	selector    KeywordSelector
	enricher    KeywordEnricher
	collector   KeywordCollector
	checkpoints repositories.GenerationProgressRepository
	bus         providers.ProgressBus
	writer      *KeywordMetricsWriter
	analytics   *ResearchAnalyticsService
	cfg         config.PipelineConfig
	now         func() time.Time
}

// ResearchDependencies groups the collaborators of KeywordResearchService.
// Checkpoints, Bus, Writer and Analytics are optional.
type ResearchDependencies struct {
	Corpus      repositories.CorpusRepository
	Similarity  SimilarityIndex
	Filter      KeywordFilter
	Collector   KeywordCollector
	Checkpoints repositories.GenerationProgressRepository
	Bus         providers.ProgressBus
	Writer      *KeywordMetricsWriter
	Analytics   *ResearchAnalyticsService
}

func NewKeywordResearchService(deps ResearchDependencies, cfg config.PipelineConfig) *KeywordResearchService {
	return &KeywordResearchService{
		corpus:      deps.Corpus,
		similarity:  deps.Similarity,
		texts:       deps.Similarity,
		selector:    deps.Filter,
		enricher:    deps.Filter,
		collector:   deps.Collector,
		checkpoints: deps.Checkpoints,
		bus:         deps.Bus,
		writer:      deps.Writer,
		analytics:   deps.Analytics,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Discover runs one similarity query against the pitch and filters the pool
func (s *KeywordResearchService) Discover(ctx context.Context, req DiscoverRequest) (*entities.SelectionResult, error) {
	ctx, span := observability.StartSpan(ctx, "KeywordResearchService.Discover")
	defer span.End()
	start := s.now()

	if strings.TrimSpace(req.Pitch) == "" {
		return nil, apperrors.NewValidationError("pitch must not be empty")
	}
	poolSize := req.PoolSize
	if poolSize <= 0 {
		poolSize = s.cfg.PoolSize
	}
	target := req.TargetCount
	if target <= 0 {
		target = s.cfg.DefaultTargetCount
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout())
	pool, err := s.similarity.FindSimilar(queryCtx, req.Pitch, poolSize)
	cancel()
	if err != nil {
		err = s.classifyQueryError(ctx, "pitch query", err)
		observability.RecordError(span, err)
		return nil, err
	}
	result, err := s.selector.Select(ctx, pool, req.Filters, utils.KeywordSet(req.Exclude), target)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	s.analytics.TrackResearch(ctx, &entities.ResearchEvent{
		Pitch:       req.Pitch,
		Kind:        ResearchKindDiscover,
		ResultCount: len(result.Keywords),
		LatencyMs:   int(s.now().Sub(start).Milliseconds()),
		Reason:      result.Reason,
	})
	return result, nil
}

// Run executes a full research run: collection, metric computation,
// persistence and the final report. onProgress may be nil.
func (s *KeywordResearchService) Run(ctx context.Context, req ResearchRequest, onProgress ProgressFunc) (*entities.ResearchReport, error) {
	if strings.TrimSpace(req.Input.Pitch) == "" {
		return nil, apperrors.NewValidationError("pitch must not be empty")
	}
	return s.run(ctx, CollectRequest{
		RunID:       req.RunID,
		Input:       req.Input,
		TargetCount: req.TargetCount,
		Filters:     req.Filters,
		Exclude:     req.Exclude,
		Pipeline:    true,
	}, onProgress)
}

// Resume continues a run from its last checkpoint
func (s *KeywordResearchService) Resume(ctx context.Context, runID string, req ResearchRequest, onProgress ProgressFunc) (*entities.ResearchReport, error) {
	checkpoint, err := s.Progress(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, CollectRequest{
		RunID:       runID,
		Input:       req.Input,
		TargetCount: req.TargetCount,
		Filters:     req.Filters,
		Exclude:     req.Exclude,
		ResumeFrom:  checkpoint,
		Pipeline:    true,
	}, onProgress)
}

// Progress returns the last checkpoint of a run
func (s *KeywordResearchService) Progress(ctx context.Context, runID string) (*entities.GenerationProgress, error) {
	if s.checkpoints == nil {
		return nil, &apperrors.AppError{Type: apperrors.ErrorTypeNotFound, Message: "run checkpoints are not stored", Err: apperrors.ErrRunNotFound}
	}
	return s.checkpoints.Get(ctx, runID)
}

func (s *KeywordResearchService) run(ctx context.Context, req CollectRequest, onProgress ProgressFunc) (*entities.ResearchReport, error) {
	ctx, span := observability.StartSpan(ctx, "KeywordResearchService.Run")
	defer span.End()
	start := s.now()
	sink := s.progressSink(ctx, onProgress)

	collected, err := s.collector.Collect(ctx, req, sink)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	progress := collected.Progress
	logger := observability.LoggerFromContext(ctx).With().Str("run_id", progress.RunID).Logger()

	if progress.Stage == entities.StageComplete {
		records, _ := s.lookupRecords(collected.Keywords)
		keywords, err := s.enrich(ctx, records, nil)
		if err != nil {
			return nil, err
		}
		return s.buildReport(progress.RunID, req.Input.Pitch, keywords), nil
	}

	fail := func(err error) (*entities.ResearchReport, error) {
		observability.RecordError(span, err)
		logger.Error().Err(err).Str("stage", string(progress.Stage)).Msg("Research run failed")
		progress.Stage = entities.StageError
		progress.Error = err.Error()
		s.emitStage(sink, progress)
		return nil, err
	}

	progress.Stage = entities.StageFetchingMetrics
	s.emitStage(sink, progress)
	records, missing := s.lookupRecords(collected.Keywords)
	if missing > 0 {
		logger.Warn().Int("missing", missing).Msg("Collected keywords missing from corpus")
	}

	progress.Stage = entities.StageComputingMetrics
	s.emitStage(sink, progress)
	keywords, err := s.enrich(ctx, records, collected.Selected)
	if err != nil {
		return fail(err)
	}
	if s.writer != nil {
		if err := s.writer.Write(ctx, progress.RunID, keywords); err != nil {
			return fail(apperrors.NewInternalError("failed to persist keyword metrics", err))
		}
	}

	progress.Stage = entities.StageGeneratingReport
	s.emitStage(sink, progress)
	report := s.buildReport(progress.RunID, req.Input.Pitch, keywords)

	progress.Stage = entities.StageComplete
	s.emitStage(sink, progress)

	s.analytics.TrackResearch(ctx, &entities.ResearchEvent{
		Pitch:       req.Input.Pitch,
		Kind:        ResearchKindRun,
		ResultCount: len(report.Keywords),
		LatencyMs:   int(s.now().Sub(start).Milliseconds()),
	})
	logger.Info().
		Int("keywords", len(report.Keywords)).
		Dur("elapsed", s.now().Sub(start)).
		Msg("Research run complete")
	return report, nil
}

// progressSink checkpoints and publishes every snapshot before handing it to
// the caller. Store and bus failures are logged, never fatal to the run.
// Writes are detached from run cancellation so the terminal snapshot of a
// cancelled or timed-out run still lands.
func (s *KeywordResearchService) progressSink(ctx context.Context, onProgress ProgressFunc) ProgressFunc {
	logger := observability.LoggerFromContext(ctx)
	detached := context.WithoutCancel(ctx)
	return func(p *entities.GenerationProgress) {
		writeCtx, cancel := context.WithTimeout(detached, sinkWriteTimeout)
		defer cancel()

		if s.checkpoints != nil {
			if err := s.checkpoints.Save(writeCtx, p); err != nil {
				logger.Warn().Err(err).Str("run_id", p.RunID).Msg("Failed to save progress checkpoint")
			}
		}
		if s.bus != nil {
			if err := s.bus.Publish(writeCtx, p); err != nil {
				logger.Warn().Err(err).Str("run_id", p.RunID).Msg("Failed to publish progress")
			}
		}
		if onProgress != nil {
			onProgress(p)
		}
	}
}

func (s *KeywordResearchService) emitStage(sink ProgressFunc, progress *entities.GenerationProgress) {
	progress.UpdatedAt = s.now()
	progress.NewKeywords = []string{}
	sink(progress.Clone())
}

func (s *KeywordResearchService) lookupRecords(keywords []string) ([]*entities.KeywordRecord, int) {
	records := make([]*entities.KeywordRecord, 0, len(keywords))
	missing := 0
	for _, kw := range keywords {
		r, ok := s.corpus.Lookup(kw)
		if !ok {
			missing++
			continue
		}
		records = append(records, r)
	}
	return records, missing
}

// enrich returns every record with metrics, in record order. Keywords
// selected in this session keep their similarity scores; records carried over
// from a checkpoint are computed again with a zero similarity score.
func (s *KeywordResearchService) enrich(ctx context.Context, records []*entities.KeywordRecord, selected []entities.EnrichedKeyword) ([]entities.EnrichedKeyword, error) {
	known := make(map[string]entities.EnrichedKeyword, len(selected))
	for _, kw := range selected {
		known[utils.NormalizeKeyword(kw.Keyword)] = kw
	}

	var pending []*entities.KeywordRecord
	for _, r := range records {
		if _, ok := known[utils.NormalizeKeyword(r.Keyword)]; !ok {
			pending = append(pending, r)
		}
	}
	if len(pending) > 0 {
		enriched, err := s.enricher.EnrichAll(ctx, pending)
		if err != nil {
			return nil, err
		}
		for _, kw := range enriched {
			known[utils.NormalizeKeyword(kw.Keyword)] = kw
		}
	}

	out := make([]entities.EnrichedKeyword, 0, len(records))
	for _, r := range records {
		if e, ok := known[utils.NormalizeKeyword(r.Keyword)]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *KeywordResearchService) buildReport(runID, pitch string, keywords []entities.EnrichedKeyword) *entities.ResearchReport {
	ranked := append([]entities.EnrichedKeyword(nil), keywords...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Metrics.OpportunityScore, ranked[j].Metrics.OpportunityScore
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a > *b
	})
	return &entities.ResearchReport{
		RunID:       runID,
		Pitch:       pitch,
		Keywords:    ranked,
		Summary:     Summarize(ranked),
		GeneratedAt: s.now(),
	}
}

// Summarize aggregates keywords already ranked by opportunity
func Summarize(ranked []entities.EnrichedKeyword) entities.ResearchSummary {
	summary := entities.ResearchSummary{
		KeywordCount:     len(ranked),
		TopOpportunities: []string{},
	}
	if len(ranked) == 0 {
		return summary
	}

	var cpcSum, competitionSum float64
	growth := make([]float64, 0, len(ranked))
	for _, kw := range ranked {
		summary.TotalVolume += utils.Finite(kw.Volume)
		cpcSum += utils.Finite(kw.CPC)
		competitionSum += utils.Finite(kw.Competition)
		if kw.GrowthYoY == nil || math.IsNaN(*kw.GrowthYoY) || math.IsInf(*kw.GrowthYoY, 0) {
			continue
		}
		growth = append(growth, *kw.GrowthYoY)
		switch {
		case *kw.GrowthYoY > 0:
			summary.RisingCount++
		case *kw.GrowthYoY < 0:
			summary.DecliningCount++
		}
	}
	n := float64(len(ranked))
	summary.AverageCPC = utils.Round(cpcSum/n, 2)
	summary.AverageCompetition = utils.Round(competitionSum/n, 2)
	summary.MedianYoYGrowth = median(growth)

	for _, kw := range ranked {
		if len(summary.TopOpportunities) == topOpportunityCount {
			break
		}
		if kw.Metrics.OpportunityScore != nil {
			summary.TopOpportunities = append(summary.TopOpportunities, kw.Keyword)
		}
	}
	return summary
}

func median(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return utils.Float(sorted[mid])
	}
	return utils.Float((sorted[mid-1] + sorted[mid]) / 2)
}

// queryTimeout bounds a single similarity call, matching the per-seed budget
// of the collector
func (s *KeywordResearchService) queryTimeout() time.Duration {
	if s.cfg.SeedTimeout > 0 {
		return s.cfg.SeedTimeout
	}
	return defaultQueryTimeout
}

func (s *KeywordResearchService) classifyQueryError(ctx context.Context, what string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return apperrors.NewTimeoutError(fmt.Sprintf("%s timed out after %s", what, s.queryTimeout()), err)
	}
	return err
}

// RescoreKeywords scores manually collected keywords against the pitch,
// highest similarity first. Keywords that fail to embed are skipped.
func (s *KeywordResearchService) RescoreKeywords(ctx context.Context, pitch string, keywords []string) ([]entities.KeywordScore, error) {
	if strings.TrimSpace(pitch) == "" {
		return nil, apperrors.NewValidationError("pitch must not be empty")
	}
	logger := observability.LoggerFromContext(ctx)

	seen := make(map[string]struct{}, len(keywords))
	scores := make([]entities.KeywordScore, 0, len(keywords))
	for _, kw := range keywords {
		key := utils.NormalizeKeyword(kw)
		if _, dup := seen[key]; dup || key == "" {
			continue
		}
		seen[key] = struct{}{}

		queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout())
		score, err := s.texts.CalculateTextSimilarity(queryCtx, pitch, kw)
		cancel()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn().Err(err).Str("keyword", kw).Msg("Failed to score keyword")
			continue
		}
		scores = append(scores, entities.KeywordScore{Keyword: kw, SimilarityScore: score})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].SimilarityScore > scores[j].SimilarityScore
	})
	return scores, nil
}
