package loaders

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

type MockKeywordMetricsRepository struct {
	mock.Mock
}

func (m *MockKeywordMetricsRepository) UpsertBatch(ctx context.Context, runID string, keywords []entities.EnrichedKeyword) error {
	return m.Called(ctx, runID, keywords).Error(0)
}

func (m *MockKeywordMetricsRepository) GetByKeywords(ctx context.Context, keywords []string) (map[string]*entities.StoredKeywordMetrics, error) {
	args := m.Called(ctx, keywords)
	if v := args.Get(0); v != nil {
		return v.(map[string]*entities.StoredKeywordMetrics), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockKeywordMetricsRepository) ListByRun(ctx context.Context, runID string, limit int) ([]*entities.StoredKeywordMetrics, error) {
	args := m.Called(ctx, runID, limit)
	if v := args.Get(0); v != nil {
		return v.([]*entities.StoredKeywordMetrics), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestStoredMetricsLoader_BatchesKeys(t *testing.T) {
	repo := new(MockKeywordMetricsRepository)
	walker := &entities.StoredKeywordMetrics{Keyword: "dog walker", Volume: 1200}
	repo.On("GetByKeywords", mock.Anything, mock.Anything).
		Return(map[string]*entities.StoredKeywordMetrics{"dog walker": walker}, nil).Once()

	l := NewLoaders(repo)
	values, errs := l.StoredMetrics.LoadMany(context.Background(), []string{"Dog Walker", "cat sitter"})()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	require.Len(t, values, 2)
	assert.Equal(t, walker, values[0])
	assert.Nil(t, values[1])
	repo.AssertExpectations(t)
	assert.ElementsMatch(t, []string{"Dog Walker", "cat sitter"}, repo.Calls[0].Arguments.Get(1))
}

func TestStoredMetricsLoader_PropagatesErrors(t *testing.T) {
	repo := new(MockKeywordMetricsRepository)
	repo.On("GetByKeywords", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	_, err := NewLoaders(repo).StoredMetrics.Load(context.Background(), "dog walker")()
	assert.EqualError(t, err, "db down")
}

func TestMiddleware_AttachesLoaders(t *testing.T) {
	var got *Loaders
	h := Middleware(new(MockKeywordMetricsRepository))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = For(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotNil(t, got)
	assert.Nil(t, For(context.Background()))
}
