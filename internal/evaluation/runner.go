package evaluation

import (
	"context"
	"time"

	"github.com/zatekoja/keywordscout/internal/application/services"
	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
)

// DefaultK is the cut-off used when the runner is built with k <= 0
const DefaultK = 10

// Discoverer runs the single-query discovery path
type Discoverer interface {
	Discover(ctx context.Context, req services.DiscoverRequest) (*entities.SelectionResult, error)
}

// Runner runs evaluation across a set of golden pitches.
type Runner struct {
	discoverer Discoverer
	k          int
}

func NewRunner(d Discoverer, k int) *Runner {
	if k <= 0 {
		k = DefaultK
	}
	return &Runner{discoverer: d, k: k}
}

func (r *Runner) Run(ctx context.Context, pitches []GoldenPitch) (*EvalSummary, error) {
	logger := observability.LoggerFromContext(ctx)
	summary := &EvalSummary{
		K:            r.k,
		TotalPitches: len(pitches),
		ByCategory:   make(map[string]*CategorySummary),
	}

	for _, gp := range pitches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		selection, err := r.discoverer.Discover(ctx, services.DiscoverRequest{
			Pitch:       gp.Pitch,
			TargetCount: r.k,
		})
		duration := time.Since(start)

		result := EvalResult{
			PitchID:  gp.ID,
			Pitch:    gp.Pitch,
			Category: gp.Category,
			Latency:  duration,
		}
		if err != nil {
			logger.Warn().Err(err).Str("pitch_id", gp.ID).Msg("Discovery failed during evaluation")
			result.Err = err.Error()
			summary.Failed++
		} else {
			result.Retrieved = make([]string, len(selection.Keywords))
			for i, kw := range selection.Keywords {
				result.Retrieved[i] = kw.Keyword
			}
			result.ResultCount = len(result.Retrieved)
			result.RecallAtK = RecallAtK(gp.ExpectedKeywords, result.Retrieved, r.k)
			result.MRRAtK = MRRAtK(gp.ExpectedKeywords, result.Retrieved, r.k)
		}

		r.updateSummary(summary, result)
	}

	r.finalizeSummary(summary)
	return summary, nil
}

func (r *Runner) updateSummary(s *EvalSummary, res EvalResult) {
	s.Results = append(s.Results, res)
	s.AvgRecallAtK += res.RecallAtK
	s.AvgMRRAtK += res.MRRAtK
	s.AvgLatency += res.Latency
	if res.RecallAtK > 0 {
		s.PitchesWithHit++
	}

	category := res.Category
	if category == "" {
		category = "uncategorized"
	}
	if _, ok := s.ByCategory[category]; !ok {
		s.ByCategory[category] = &CategorySummary{}
	}
	cs := s.ByCategory[category]
	cs.Count++
	cs.AvgRecallAtK += res.RecallAtK
	cs.AvgMRRAtK += res.MRRAtK
}

func (r *Runner) finalizeSummary(s *EvalSummary) {
	if s.TotalPitches > 0 {
		n := float64(s.TotalPitches)
		s.AvgRecallAtK /= n
		s.AvgMRRAtK /= n
		s.AvgLatency /= time.Duration(s.TotalPitches)
	}

	for _, cs := range s.ByCategory {
		if cs.Count > 0 {
			n := float64(cs.Count)
			cs.AvgRecallAtK /= n
			cs.AvgMRRAtK /= n
		}
	}
}
