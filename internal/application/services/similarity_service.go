package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/providers"
	"github.com/zatekoja/keywordscout/internal/domain/repositories"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
	"github.com/zatekoja/keywordscout/pkg/utils"
)

// ErrIndexNotBuilt is returned by queries issued before Build or after Close
var ErrIndexNotBuilt = errors.New("similarity index not built")

type indexedVector struct {
	record *entities.KeywordRecord
	vector []float32
	norm   float64
}

// SimilarityService ranks corpus keywords by embedding similarity to a text.
// The index joins corpus records with their precomputed vectors and keeps
// corpus order so equal scores rank deterministically.
type SimilarityService struct {
	corpus   repositories.CorpusRepository
	vectors  providers.VectorStore
	embedder providers.EmbeddingProvider
	metrics  *observability.PipelineMetrics

	mu    sync.RWMutex
	index []indexedVector
	built bool
}

// NewSimilarityService creates an unbuilt index. metrics may be nil.
func NewSimilarityService(
	corpus repositories.CorpusRepository,
	vectors providers.VectorStore,
	embedder providers.EmbeddingProvider,
	metrics *observability.PipelineMetrics,
) *SimilarityService {
	return &SimilarityService{
		corpus:   corpus,
		vectors:  vectors,
		embedder: embedder,
		metrics:  metrics,
	}
}

// Build joins the corpus with the vector store. Vectors without a corpus
// record are skipped; a dimension mismatch with the embedder is fatal.
func (s *SimilarityService) Build(ctx context.Context) error {
	logger := observability.LoggerFromContext(ctx)

	if s.vectors.Dimensions() != s.embedder.Dimensions() {
		return apperrors.NewFatalError(
			fmt.Sprintf("embedding dimensions differ: store %d, provider %d", s.vectors.Dimensions(), s.embedder.Dimensions()),
			apperrors.ErrCorpusUnavailable,
		)
	}

	byKeyword := make(map[string]int, s.vectors.Len())
	orphans := 0
	for i := 0; i < s.vectors.Len(); i++ {
		key := utils.NormalizeKeyword(s.vectors.Keyword(i))
		if _, ok := s.corpus.Lookup(key); !ok {
			orphans++
			continue
		}
		if _, dup := byKeyword[key]; !dup {
			byKeyword[key] = i
		}
	}

	records := s.corpus.All()
	index := make([]indexedVector, 0, len(byKeyword))
	for _, record := range records {
		i, ok := byKeyword[utils.NormalizeKeyword(record.Keyword)]
		if !ok {
			continue
		}
		vec, norm := s.vectors.Vector(i)
		index = append(index, indexedVector{record: record, vector: vec, norm: norm})
	}

	if len(index) == 0 {
		return apperrors.NewFatalError("no corpus keyword has an embedding", apperrors.ErrCorpusUnavailable)
	}

	s.mu.Lock()
	s.index = index
	s.built = true
	s.mu.Unlock()

	logger.Info().
		Int("indexed", len(index)).
		Int("corpus", len(records)).
		Int("orphan_vectors", orphans).
		Msg("Similarity index built")
	return nil
}

// Close releases the index
func (s *SimilarityService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = nil
	s.built = false
	return nil
}

// Len returns the number of indexed keywords
func (s *SimilarityService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// FindSimilar returns up to topN corpus keywords ordered by descending
// similarity to queryText. Ties keep corpus order.
func (s *SimilarityService) FindSimilar(ctx context.Context, queryText string, topN int) ([]entities.SimilarityCandidate, error) {
	ctx, span := observability.StartSpan(ctx, "similarity.find")
	defer span.End()

	if strings.TrimSpace(queryText) == "" {
		return nil, apperrors.NewValidationError("query text is required")
	}
	if topN <= 0 {
		return []entities.SimilarityCandidate{}, nil
	}

	s.mu.RLock()
	index, built := s.index, s.built
	s.mu.RUnlock()
	if !built {
		return nil, apperrors.NewInternalError("similarity query failed", ErrIndexNotBuilt)
	}

	start := time.Now()
	query, err := s.embed(ctx, queryText)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	queryNorm := utils.Norm(query)

	candidates := make([]entities.SimilarityCandidate, len(index))
	for i, iv := range index {
		candidates[i] = entities.SimilarityCandidate{
			Record:          iv.record,
			SimilarityScore: utils.Similarity(utils.Cosine(query, queryNorm, iv.vector, iv.norm)),
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SimilarityScore > candidates[j].SimilarityScore
	})
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}

	s.metrics.RecordCandidates(ctx, len(candidates), time.Since(start))
	return candidates, nil
}

// CalculateTextSimilarity scores two free texts against each other on [0,1]
func (s *SimilarityService) CalculateTextSimilarity(ctx context.Context, a, b string) (float64, error) {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0, apperrors.NewValidationError("both texts are required")
	}

	va, err := s.embed(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := s.embed(ctx, b)
	if err != nil {
		return 0, err
	}
	return utils.Similarity(utils.Cosine(va, utils.Norm(va), vb, utils.Norm(vb))), nil
}

func (s *SimilarityService) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewTimeoutError("embedding request timed out", err)
		}
		return nil, apperrors.NewExternalError("failed to embed text", err)
	}
	if len(vec) != s.embedder.Dimensions() {
		return nil, apperrors.NewExternalError(
			fmt.Sprintf("embedding has %d dimensions, expected %d", len(vec), s.embedder.Dimensions()),
			nil,
		)
	}
	return vec, nil
}
