package evaluation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/keywordscout/internal/application/services"
	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

type fakeDiscoverer struct {
	results map[string][]string
	err     map[string]error
	targets []int
}

func (f *fakeDiscoverer) Discover(_ context.Context, req services.DiscoverRequest) (*entities.SelectionResult, error) {
	f.targets = append(f.targets, req.TargetCount)
	if err := f.err[req.Pitch]; err != nil {
		return nil, err
	}
	res := &entities.SelectionResult{}
	for _, kw := range f.results[req.Pitch] {
		res.Keywords = append(res.Keywords, entities.EnrichedKeyword{
			KeywordRecord: &entities.KeywordRecord{Keyword: kw},
		})
	}
	return res, nil
}

func TestRunner_Run(t *testing.T) {
	d := &fakeDiscoverer{
		results: map[string][]string{
			"dog walking app": {"dog walker", "pet sitter"},
			"meal kits":       {"meal prep", "recipe box"},
		},
		err: map[string]error{"broken": errors.New("index down")},
	}
	pitches := []GoldenPitch{
		{ID: "p1", Pitch: "dog walking app", Category: "pets", ExpectedKeywords: []string{"dog walker"}},
		{ID: "p2", Pitch: "meal kits", Category: "food", ExpectedKeywords: []string{"meal kit delivery", "recipe box"}},
		{ID: "p3", Pitch: "broken", Category: "pets", ExpectedKeywords: []string{"anything"}},
	}

	summary, err := NewRunner(d, 5).Run(context.Background(), pitches)
	require.NoError(t, err)

	assert.Equal(t, []int{5, 5, 5}, d.targets)
	assert.Equal(t, 5, summary.K)
	assert.Equal(t, 3, summary.TotalPitches)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.PitchesWithHit)
	assert.InDelta(t, (1.0+0.5+0)/3, summary.AvgRecallAtK, 1e-9)
	assert.InDelta(t, (1.0+0.5+0)/3, summary.AvgMRRAtK, 1e-9)

	require.Len(t, summary.Results, 3)
	assert.Equal(t, "index down", summary.Results[2].Err)
	assert.Equal(t, []string{"meal prep", "recipe box"}, summary.Results[1].Retrieved)

	assert.Equal(t, 2, summary.ByCategory["pets"].Count)
	assert.InDelta(t, 0.5, summary.ByCategory["pets"].AvgRecallAtK, 1e-9)
	assert.InDelta(t, 0.5, summary.ByCategory["food"].AvgMRRAtK, 1e-9)
}

func TestRunner_DefaultK(t *testing.T) {
	assert.Equal(t, DefaultK, NewRunner(&fakeDiscoverer{}, 0).k)
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(&fakeDiscoverer{}, 10).Run(ctx, []GoldenPitch{{ID: "p1", Pitch: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
}
