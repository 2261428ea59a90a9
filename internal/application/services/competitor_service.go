package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/keywordscout/internal/domain/providers"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
	"github.com/zatekoja/keywordscout/pkg/utils"
)

const (
	defaultCompetitorCount = 5
	competitorCacheTTL     = 24 * time.Hour
)

const competitorSystemPrompt = `You are a market analyst. Given a product idea, list existing products or companies that compete with it. Return ONLY a JSON array of objects with the keys "name", "description" (one sentence) and "url". No commentary.`

// CompetitorService suggests competing products for a pitch
type CompetitorService struct {
	generator providers.TextGenerator
	cache     providers.CacheProvider
	timeout   time.Duration
}

// NewCompetitorService creates the service. cache may be nil.
func NewCompetitorService(generator providers.TextGenerator, cache providers.CacheProvider, timeout time.Duration) *CompetitorService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CompetitorService{generator: generator, cache: cache, timeout: timeout}
}

// Suggest returns up to count competitors. Identical pitches are served from
// the cache when one is configured.
func (s *CompetitorService) Suggest(ctx context.Context, pitch string, count int) ([]utils.Competitor, error) {
	pitch = strings.TrimSpace(pitch)
	if pitch == "" {
		return nil, apperrors.NewValidationError("pitch must not be empty")
	}
	if count <= 0 {
		count = defaultCompetitorCount
	}
	if s.generator == nil {
		return nil, apperrors.NewExternalError("competitor suggestions are unavailable", errors.New("text generator not configured"))
	}
	logger := observability.LoggerFromContext(ctx)
	key := competitorCacheKey(pitch, count)

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var cached []utils.Competitor
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		} else if !errors.Is(err, providers.ErrCacheMiss) {
			logger.Warn().Err(err).Msg("Competitor cache read failed")
		}
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	text, err := s.generator.Generate(genCtx, competitorSystemPrompt, fmt.Sprintf("Product idea: %s\nList %d competitors.", pitch, count))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, apperrors.NewTimeoutError("competitor generation timed out", err)
		}
		return nil, apperrors.NewExternalError("competitor generation failed", err)
	}

	competitors := utils.ParseCompetitors(text)
	if len(competitors) > count {
		competitors = competitors[:count]
	}

	if s.cache != nil && len(competitors) > 0 {
		if data, err := json.Marshal(competitors); err == nil {
			if err := s.cache.Set(ctx, key, data, int(competitorCacheTTL.Seconds())); err != nil {
				logger.Warn().Err(err).Msg("Competitor cache write failed")
			}
		}
	}
	return competitors, nil
}

func competitorCacheKey(pitch string, count int) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(utils.NormalizeKeyword(pitch)))
	return fmt.Sprintf("competitors:%s:%d", id, count)
}
