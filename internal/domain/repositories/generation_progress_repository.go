package repositories

import (
	"context"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

// GenerationProgressRepository stores collection checkpoints by run id
type GenerationProgressRepository interface {
	Save(ctx context.Context, progress *entities.GenerationProgress) error
	Get(ctx context.Context, runID string) (*entities.GenerationProgress, error)
}
