package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	"github.com/zatekoja/keywordscout/pkg/config"
	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
	"github.com/zatekoja/keywordscout/pkg/utils"
)

// SimilaritySearcher returns the candidate pool for one query text
type SimilaritySearcher interface {
	FindSimilar(ctx context.Context, queryText string, topN int) ([]entities.SimilarityCandidate, error)
}

// KeywordSelector filters and ranks a candidate pool
type KeywordSelector interface {
	Select(ctx context.Context, pool []entities.SimilarityCandidate, filters []entities.Filter, exclude map[string]struct{}, targetCount int) (*entities.SelectionResult, error)
}

// ProgressFunc receives progress snapshots. Each snapshot is a private copy.
type ProgressFunc func(progress *entities.GenerationProgress)

// CollectRequest describes one collection run
type CollectRequest struct {
	RunID       string
	Input       entities.IdeaInput
	TargetCount int
	Filters     []entities.Filter
	Exclude     []string
	ResumeFrom  *entities.GenerationProgress

	// Pipeline leaves the run open after collection instead of marking it
	// complete, so the research pipeline can continue with later stages.
	Pipeline bool
}

// CollectResult is the outcome of a collection run
type CollectResult struct {
	Keywords []string                     `json:"keywords"`
	Selected []entities.EnrichedKeyword   `json:"-"`
	Progress *entities.GenerationProgress `json:"progress"`
}

// KeywordCollectorService gathers keywords over many seed queries until a
// target count of distinct keywords is reached
type KeywordCollectorService struct {
	seeds      SeedGenerator
	similarity SimilaritySearcher
	selector   KeywordSelector
	cfg        config.PipelineConfig
	metrics    *observability.PipelineMetrics
	now        func() time.Time
}

// NewKeywordCollectorService creates a collector. metrics may be nil.
func NewKeywordCollectorService(
	seeds SeedGenerator,
	similarity SimilaritySearcher,
	selector KeywordSelector,
	cfg config.PipelineConfig,
	metrics *observability.PipelineMetrics,
) *KeywordCollectorService {
	return &KeywordCollectorService{
		seeds:      seeds,
		similarity: similarity,
		selector:   selector,
		cfg:        cfg,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Collect runs seed generation and per-seed keyword collection. On a
// run-level failure the returned result still carries the last snapshot,
// moved to the error stage.
func (s *KeywordCollectorService) Collect(ctx context.Context, req CollectRequest, onProgress ProgressFunc) (*CollectResult, error) {
	for _, f := range req.Filters {
		if err := f.Validate(); err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
	}
	target := req.TargetCount
	if target <= 0 {
		target = s.cfg.DefaultTargetCount
	}

	tracker := s.newTracker(req, onProgress)
	logger := observability.LoggerFromContext(ctx).With().Str("run_id", tracker.state.RunID).Logger()

	if resumed := req.ResumeFrom; resumed != nil && resumed.Stage == entities.StageComplete {
		return tracker.result(), nil
	}

	// generating-seeds
	seeds := tracker.state.Seeds
	if len(seeds) == 0 {
		tracker.update(func(p *entities.GenerationProgress) { p.Stage = entities.StageGeneratingSeeds })
		tracker.emit()

		generated, err := s.seeds.GenerateSeeds(ctx, req.Input, s.cfg.SeedCount)
		if err != nil {
			return tracker.fail(apperrors.NewExternalError("failed to generate seeds", err))
		}
		if len(generated) == 0 {
			return tracker.fail(apperrors.NewValidationError("idea produced no seed queries"))
		}
		seeds = generated
		tracker.update(func(p *entities.GenerationProgress) {
			p.Seeds = append([]string(nil), generated...)
			p.SeedsGenerated = len(generated)
		})
	}

	// generating-keywords
	tracker.update(func(p *entities.GenerationProgress) { p.Stage = entities.StageGeneratingKeywords })
	tracker.emit()

	callerExclude := utils.KeywordSet(req.Exclude)
	fresh := req.ResumeFrom == nil
	var selected []entities.EnrichedKeyword

	for i := tracker.state.SeedsProcessed; i < len(seeds); i++ {
		remaining := target - tracker.collected()
		if remaining <= 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return tracker.fail(apperrors.NewInternalError("collection cancelled", err))
		}

		seed := seeds[i]
		pool, err := s.querySeed(ctx, tracker, seed)
		if err != nil {
			// the run itself was stopped: leave the seed unprocessed so resume re-queries it
			if ctxErr := ctx.Err(); ctxErr != nil {
				logger.Warn().Err(err).Str("seed", seed).Int("seed_index", i).Msg("Run cancelled during seed query")
				return tracker.fail(apperrors.NewInternalError("collection cancelled", errors.Join(ctxErr, err)))
			}
			if fresh && i == 0 {
				logger.Error().Err(err).Str("seed", seed).Msg("First seed failed, aborting run")
				return tracker.fail(&apperrors.AppError{
					Type:    apperrors.TypeOf(err),
					Message: fmt.Sprintf("first seed %q failed", seed),
					Err:     errors.Join(apperrors.ErrSeedFailed, err),
				})
			}
			logger.Warn().Err(err).Str("seed", seed).Int("seed_index", i).Msg("Seed query failed, skipping")
			s.metrics.RecordSeedFailure(ctx, string(apperrors.TypeOf(err)))
			tracker.update(func(p *entities.GenerationProgress) { p.SeedsProcessed = i + 1 })
			tracker.emit()
			continue
		}

		exclude := tracker.excludeSet(callerExclude)
		result, err := s.selector.Select(ctx, pool, req.Filters, exclude, remaining)
		if err != nil {
			return tracker.fail(err)
		}

		duplicates, existing := countOverlap(pool, tracker, callerExclude)
		added := tracker.add(result.Keywords)
		selected = append(selected, added...)
		s.metrics.RecordCollected(ctx, len(added))

		tracker.update(func(p *entities.GenerationProgress) {
			p.SeedsProcessed = i + 1
			p.KeywordsGenerated += len(pool)
			p.DuplicatesFound += duplicates
			p.ExistingFound += existing
		})
		tracker.emit()

		logger.Debug().
			Str("seed", seed).
			Int("pool", len(pool)).
			Int("added", len(added)).
			Int("collected", tracker.collected()).
			Msg("Seed processed")
	}

	if !req.Pipeline {
		tracker.update(func(p *entities.GenerationProgress) { p.Stage = entities.StageComplete })
		tracker.emit()
	}

	res := tracker.result()
	res.Selected = selected
	return res, nil
}

// querySeed runs one similarity query with the seed timeout, emitting
// heartbeat snapshots while it is in flight
func (s *KeywordCollectorService) querySeed(ctx context.Context, tracker *progressTracker, seed string) ([]entities.SimilarityCandidate, error) {
	timeout := s.cfg.SeedTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	seedCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stop := tracker.heartbeat(s.cfg.HeartbeatInterval)
	defer stop()

	pool, err := s.similarity.FindSimilar(seedCtx, seed, s.cfg.PoolSize)
	if err == nil {
		return pool, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, apperrors.NewTimeoutError(fmt.Sprintf("seed %q timed out after %s", seed, timeout), err)
	}
	return nil, err
}

func countOverlap(pool []entities.SimilarityCandidate, tracker *progressTracker, callerExclude map[string]struct{}) (duplicates, existing int) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	for _, c := range pool {
		if c.Record == nil {
			continue
		}
		key := utils.NormalizeKeyword(c.Record.Keyword)
		if _, ok := tracker.seen[key]; ok {
			duplicates++
		} else if _, ok := callerExclude[key]; ok {
			existing++
		}
	}
	return duplicates, existing
}

func (s *KeywordCollectorService) newTracker(req CollectRequest, onProgress ProgressFunc) *progressTracker {
	now := s.now()
	var state *entities.GenerationProgress
	if req.ResumeFrom != nil {
		state = req.ResumeFrom.Clone()
		state.Error = ""
		state.NewKeywords = nil
	} else {
		runID := req.RunID
		if runID == "" {
			runID = uuid.New().String()
		}
		state = &entities.GenerationProgress{
			RunID:     runID,
			Stage:     entities.StageGeneratingSeeds,
			Seeds:     []string{},
			Keywords:  []string{},
			StartedAt: now,
		}
	}
	state.UpdatedAt = now

	seen := make(map[string]struct{}, len(state.Keywords))
	for _, kw := range state.Keywords {
		seen[utils.NormalizeKeyword(kw)] = struct{}{}
	}

	return &progressTracker{
		state:       state,
		seen:        seen,
		lastEmitted: len(state.Keywords),
		onProgress:  onProgress,
		now:         s.now,
	}
}

// progressTracker owns the mutable run state. Snapshots are emitted under the
// lock so callbacks observe them in order.
type progressTracker struct {
	mu          sync.Mutex
	state       *entities.GenerationProgress
	seen        map[string]struct{}
	lastEmitted int
	terminal    bool
	onProgress  ProgressFunc
	now         func() time.Time
}

func (t *progressTracker) update(fn func(p *entities.GenerationProgress)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.state)
}

func (t *progressTracker) collected() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.state.Keywords)
}

func (t *progressTracker) excludeSet(caller map[string]struct{}) map[string]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	set := make(map[string]struct{}, len(caller)+len(t.seen))
	for k := range caller {
		set[k] = struct{}{}
	}
	for k := range t.seen {
		set[k] = struct{}{}
	}
	return set
}

// add appends keywords not yet seen and returns the ones added
func (t *progressTracker) add(keywords []entities.EnrichedKeyword) []entities.EnrichedKeyword {
	t.mu.Lock()
	defer t.mu.Unlock()
	added := make([]entities.EnrichedKeyword, 0, len(keywords))
	for _, kw := range keywords {
		key := utils.NormalizeKeyword(kw.Keyword)
		if _, dup := t.seen[key]; dup || key == "" {
			continue
		}
		t.seen[key] = struct{}{}
		t.state.Keywords = append(t.state.Keywords, kw.Keyword)
		t.state.NewCollected++
		added = append(added, kw)
	}
	return added
}

func (t *progressTracker) emit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emitLocked()
}

func (t *progressTracker) emitLocked() {
	if t.terminal {
		return
	}
	t.state.UpdatedAt = t.now()
	snapshot := t.state.Clone()
	snapshot.NewKeywords = append([]string{}, t.state.Keywords[t.lastEmitted:]...)
	t.lastEmitted = len(t.state.Keywords)
	if t.state.Stage.IsTerminal() {
		t.terminal = true
	}
	if t.onProgress != nil {
		t.onProgress(snapshot)
	}
}

// heartbeat emits the current snapshot every interval until stop is called
func (t *progressTracker) heartbeat(interval time.Duration) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				t.emit()
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

// fail moves the run to the error stage, keeping every counter of the last
// good snapshot
func (t *progressTracker) fail(err error) (*CollectResult, error) {
	t.mu.Lock()
	t.state.Stage = entities.StageError
	t.state.Error = err.Error()
	t.emitLocked()
	t.mu.Unlock()
	return t.result(), err
}

func (t *progressTracker) result() *CollectResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &CollectResult{
		Keywords: append([]string{}, t.state.Keywords...),
		Progress: t.state.Clone(),
	}
}
