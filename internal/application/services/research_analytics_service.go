package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/repositories"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
)

const (
	ResearchKindDiscover = "discover"
	ResearchKindRun      = "research"
)

type ResearchAnalyticsService struct {
	repo repositories.ResearchAnalyticsRepository
	wg   sync.WaitGroup
	now  func() time.Time
}

func NewResearchAnalyticsService(repo repositories.ResearchAnalyticsRepository) *ResearchAnalyticsService {
	return &ResearchAnalyticsService{repo: repo, now: time.Now}
}

// TrackResearch logs the event in the background so the request never waits
// on the analytics store
func (s *ResearchAnalyticsService) TrackResearch(ctx context.Context, event *entities.ResearchEvent) {
	if s == nil || s.repo == nil || event == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	logger := observability.LoggerFromContext(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// The request context may already be cancelled
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.repo.LogEvent(bgCtx, event); err != nil {
			logger.Warn().Err(err).Str("kind", event.Kind).Msg("Failed to log research event")
		}
	}()
}

// Wait blocks until every pending event has been written
func (s *ResearchAnalyticsService) Wait() {
	if s != nil {
		s.wg.Wait()
	}
}

func (s *ResearchAnalyticsService) GetZeroResultPitches(ctx context.Context, limit int) ([]*entities.ResearchEvent, error) {
	return s.repo.GetZeroResultPitches(ctx, limit)
}
