package repositories

import (
	"context"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

// KeywordSearchRepository is lexical keyword search over the indexed corpus
type KeywordSearchRepository interface {
	InitSchema(ctx context.Context) error
	Index(ctx context.Context, keyword entities.EnrichedKeyword) error
	Search(ctx context.Context, params KeywordSearchParams) ([]*entities.KeywordSearchHit, error)
}

// KeywordSearchParams holds lexical search parameters
type KeywordSearchParams struct {
	Query     string
	MinVolume float64
	Limit     int
	Offset    int
}
