package repositories

import (
	"context"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

// KeywordMetricsRepository persists scored keywords produced by research runs
type KeywordMetricsRepository interface {
	// UpsertBatch writes one batch of keywords for a run
	UpsertBatch(ctx context.Context, runID string, keywords []entities.EnrichedKeyword) error

	// GetByKeywords returns the latest stored metrics for each known keyword
	GetByKeywords(ctx context.Context, keywords []string) (map[string]*entities.StoredKeywordMetrics, error)

	// ListByRun returns the keywords stored for a run ordered by opportunity
	ListByRun(ctx context.Context, runID string, limit int) ([]*entities.StoredKeywordMetrics, error)
}
