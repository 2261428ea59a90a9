package repositories

import (
	"context"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

type ResearchAnalyticsRepository interface {
	LogEvent(ctx context.Context, event *entities.ResearchEvent) error
	GetZeroResultPitches(ctx context.Context, limit int) ([]*entities.ResearchEvent, error)
}
