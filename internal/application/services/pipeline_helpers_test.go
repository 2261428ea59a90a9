package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/keywordscout/internal/adapters/corpus"
	"github.com/zatekoja/keywordscout/internal/domain/analytics"
	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

// record builds a corpus record whose monthly series starts at 2023_01
func record(keyword string, volumes ...int64) *entities.KeywordRecord {
	series := make([]entities.MonthlyVolume, len(volumes))
	for i, v := range volumes {
		series[i] = entities.MonthlyVolume{
			Period: fmt.Sprintf("%d_%02d", 2023+i/12, i%12+1),
			Volume: v,
		}
	}
	return &entities.KeywordRecord{
		Keyword:        keyword,
		Series:         series,
		Competition:    50,
		CPC:            1,
		TopPageBidLow:  0.5,
		TopPageBidHigh: 2,
	}
}

func flat(volume int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = volume
	}
	return out
}

func fixtureCorpus(records ...*entities.KeywordRecord) *corpus.Store {
	return corpus.NewStoreFromRecords(records...)
}

func candidate(r *entities.KeywordRecord, score float64) entities.SimilarityCandidate {
	return entities.SimilarityCandidate{Record: r, SimilarityScore: score}
}

type fakeVectorStore struct {
	keywords []string
	vectors  [][]float32
}

func (s *fakeVectorStore) Len() int        { return len(s.keywords) }
func (s *fakeVectorStore) Dimensions() int { return len(s.vectors[0]) }
func (s *fakeVectorStore) Keyword(i int) string {
	return s.keywords[i]
}
func (s *fakeVectorStore) Vector(i int) ([]float32, float64) {
	v := s.vectors[i]
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return v, math.Sqrt(sum)
}

type MockEmbeddingProvider struct {
	mock.Mock
	dims int
}

func (m *MockEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if v := args.Get(0); v != nil {
		return v.([]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEmbeddingProvider) Dimensions() int {
	return m.dims
}

// spyCalculator counts which records reach the metrics engine
type spyCalculator struct {
	engine *analytics.Engine
	calls  atomic.Int64
	seen   sync.Map
}

func newSpyCalculator() *spyCalculator {
	return &spyCalculator{engine: analytics.NewEngine()}
}

func (s *spyCalculator) Compute(r *entities.KeywordRecord) entities.KeywordMetrics {
	s.calls.Add(1)
	s.seen.Store(r.Keyword, true)
	return s.engine.Compute(r)
}

func (s *spyCalculator) computed(keyword string) bool {
	_, ok := s.seen.Load(keyword)
	return ok
}

func keywordsOf(kws []entities.EnrichedKeyword) []string {
	out := make([]string, len(kws))
	for i, kw := range kws {
		out[i] = kw.Keyword
	}
	return out
}
