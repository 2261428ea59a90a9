package embeddings

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/zatekoja/keywordscout/internal/domain/providers"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	"github.com/zatekoja/keywordscout/pkg/utils"
)

const cacheKeyPrefix = "embedding:"

// CachedProvider serves query embeddings from an in-process LRU, then from a
// shared cache, and only then from the wrapped provider.
type CachedProvider struct {
	inner   providers.EmbeddingProvider
	local   *lru.Cache[string, []float32]
	shared  providers.CacheProvider
	ttl     time.Duration
	metrics *observability.Metrics
}

var _ providers.EmbeddingProvider = (*CachedProvider)(nil)

// NewCachedProvider wraps inner. shared and metrics may be nil.
func NewCachedProvider(inner providers.EmbeddingProvider, size int, shared providers.CacheProvider, ttl time.Duration, metrics *observability.Metrics) (*CachedProvider, error) {
	if size <= 0 {
		size = 1024
	}
	local, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &CachedProvider{
		inner:   inner,
		local:   local,
		shared:  shared,
		ttl:     ttl,
		metrics: metrics,
	}, nil
}

// Embed returns the embedding of text. Texts that differ only in case or
// whitespace share one cache entry.
func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKeyPrefix + utils.NormalizeKeyword(text)

	if vec, ok := p.local.Get(key); ok {
		observability.RecordCacheHit(ctx, p.metrics, "embedding.local")
		return vec, nil
	}
	observability.RecordCacheMiss(ctx, p.metrics, "embedding.local")

	if p.shared != nil {
		data, err := p.shared.Get(ctx, key)
		switch {
		case err == nil:
			if vec, ok := decodeVector(data, p.inner.Dimensions()); ok {
				observability.RecordCacheHit(ctx, p.metrics, "embedding.shared")
				p.local.Add(key, vec)
				return vec, nil
			}
		case !errors.Is(err, providers.ErrCacheMiss):
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Embedding cache read failed")
		}
		observability.RecordCacheMiss(ctx, p.metrics, "embedding.shared")
	}

	vec, err := p.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	p.local.Add(key, vec)

	if p.shared != nil {
		if err := p.shared.Set(ctx, key, encodeVector(vec), int(p.ttl.Seconds())); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Embedding cache write failed")
		}
	}
	return vec, nil
}

// Dimensions returns the wrapped provider's dimensions
func (p *CachedProvider) Dimensions() int {
	return p.inner.Dimensions()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 0, len(vec)*float32Size)
	for _, f := range vec {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte, dims int) ([]float32, bool) {
	if len(data) == 0 || len(data)%float32Size != 0 || len(data)/float32Size != dims {
		return nil, false
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*float32Size:]))
	}
	return vec, true
}
