package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/keywordscout/internal/domain/providers"
	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
	"github.com/zatekoja/keywordscout/pkg/utils"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

const competitorJSON = "```json\n" + `[
  {"name": "Rover", "description": "Pet sitting marketplace", "url": "https://rover.com"},
  {"name": "Wag!", "description": "On-demand dog walking", "url": "https://wagwalking.com"},
  {"name": "", "description": "nameless"}
]` + "\n```"

func TestCompetitorService_Suggest(t *testing.T) {
	gen := &MockTextGenerator{}
	gen.On("Generate", mock.Anything, competitorSystemPrompt, mock.MatchedBy(func(p string) bool {
		return p == "Product idea: dog walking app\nList 5 competitors."
	})).Return(competitorJSON, nil).Once()
	cache := newMemoryCache()
	svc := NewCompetitorService(gen, cache, 0)

	got, err := svc.Suggest(context.Background(), " dog walking app ", 0)
	require.NoError(t, err)
	assert.Equal(t, []utils.Competitor{
		{Name: "Rover", Description: "Pet sitting marketplace", URL: "https://rover.com"},
		{Name: "Wag!", Description: "On-demand dog walking", URL: "https://wagwalking.com"},
	}, got)

	// served from cache without a second generator call
	again, err := svc.Suggest(context.Background(), "Dog Walking App", 5)
	require.NoError(t, err)
	assert.Equal(t, got, again)
	gen.AssertExpectations(t)
}

func TestCompetitorService_TruncatesToCount(t *testing.T) {
	gen := &MockTextGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("Rover, Wag!, Fetch", nil)

	got, err := NewCompetitorService(gen, nil, 0).Suggest(context.Background(), "dog walking app", 2)
	require.NoError(t, err)
	assert.Equal(t, []utils.Competitor{{Name: "Rover"}, {Name: "Wag!"}}, got)
}

func TestCompetitorService_Errors(t *testing.T) {
	gen := &MockTextGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("503"))

	_, err := NewCompetitorService(gen, nil, 0).Suggest(context.Background(), "dog walking app", 3)
	assert.Equal(t, apperrors.ErrorTypeExternal, apperrors.TypeOf(err))

	_, err = NewCompetitorService(gen, nil, 0).Suggest(context.Background(), "  ", 3)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))

	_, err = NewCompetitorService(nil, nil, 0).Suggest(context.Background(), "dog walking app", 3)
	assert.Equal(t, apperrors.ErrorTypeExternal, apperrors.TypeOf(err))
}
