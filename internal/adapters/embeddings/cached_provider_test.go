package embeddings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/keywordscout/internal/domain/providers"
)

type MockEmbeddingProvider struct {
	mock.Mock
}

func (m *MockEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbeddingProvider) Dimensions() int {
	return 2
}

type MockCacheProvider struct {
	mock.Mock
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	args := m.Called(ctx, key, value, expirationSeconds)
	return args.Error(0)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func TestCachedProvider_LocalHitSkipsProvider(t *testing.T) {
	inner := new(MockEmbeddingProvider)
	inner.On("Embed", mock.Anything, "Desk Lamp").Return([]float32{1, 0}, nil).Once()

	p, err := NewCachedProvider(inner, 8, nil, time.Hour, nil)
	require.NoError(t, err)

	first, err := p.Embed(context.Background(), "Desk Lamp")
	require.NoError(t, err)
	second, err := p.Embed(context.Background(), "  desk   lamp ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	inner.AssertExpectations(t)
}

func TestCachedProvider_SharedCache(t *testing.T) {
	inner := new(MockEmbeddingProvider)
	shared := new(MockCacheProvider)

	shared.On("Get", mock.Anything, "embedding:desk lamp").Return(encodeVector([]float32{0.5, 0.5}), nil).Once()

	p, err := NewCachedProvider(inner, 8, shared, time.Hour, nil)
	require.NoError(t, err)

	vec, err := p.Embed(context.Background(), "desk lamp")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)
	inner.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
	shared.AssertExpectations(t)
}

func TestCachedProvider_MissWritesThrough(t *testing.T) {
	inner := new(MockEmbeddingProvider)
	shared := new(MockCacheProvider)

	shared.On("Get", mock.Anything, "embedding:standing desk").Return(nil, providers.ErrCacheMiss).Once()
	inner.On("Embed", mock.Anything, "standing desk").Return([]float32{0, 1}, nil).Once()
	shared.On("Set", mock.Anything, "embedding:standing desk", encodeVector([]float32{0, 1}), 3600).Return(nil).Once()

	p, err := NewCachedProvider(inner, 8, shared, time.Hour, nil)
	require.NoError(t, err)

	vec, err := p.Embed(context.Background(), "standing desk")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vec)
	inner.AssertExpectations(t)
	shared.AssertExpectations(t)
}

func TestCachedProvider_ProviderError(t *testing.T) {
	inner := new(MockEmbeddingProvider)
	inner.On("Embed", mock.Anything, "x").Return(nil, errors.New("ollama down"))

	p, err := NewCachedProvider(inner, 8, nil, time.Hour, nil)
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), "x")
	assert.EqualError(t, err, "ollama down")
}

func TestDecodeVector_RejectsWrongLength(t *testing.T) {
	_, ok := decodeVector(encodeVector([]float32{1, 2, 3}), 2)
	assert.False(t, ok)
	_, ok = decodeVector([]byte{1, 2}, 2)
	assert.False(t, ok)
}
