package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/repositories"
	"github.com/zatekoja/keywordscout/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
)

const researchAnalyticsTable = "research_analytics"

type ResearchAnalyticsAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

func NewResearchAnalyticsAdapter(client *postgres.Client) repositories.ResearchAnalyticsRepository {
	return &ResearchAnalyticsAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func (a *ResearchAnalyticsAdapter) LogEvent(ctx context.Context, event *entities.ResearchEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query, args, err := a.db.Insert(researchAnalyticsTable).Rows(goqu.Record{
		"id":           event.ID,
		"pitch":        event.Pitch,
		"kind":         event.Kind,
		"result_count": event.ResultCount,
		"latency_ms":   event.LatencyMs,
		"reason":       event.Reason,
		"created_at":   event.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build research event insert", err)
	}

	if _, err := a.client.Exec(ctx, "research_events.insert", query, args...); err != nil {
		return apperrors.NewInternalError("failed to log research event", err)
	}
	return nil
}

func (a *ResearchAnalyticsAdapter) GetZeroResultPitches(ctx context.Context, limit int) ([]*entities.ResearchEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query, args, err := a.db.Select("id", "pitch", "kind", "result_count", "latency_ms", "reason", "created_at").
		From(researchAnalyticsTable).
		Where(goqu.Ex{"result_count": 0}).
		Order(goqu.C("created_at").Desc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build zero result query", err)
	}

	rows, err := a.client.Query(ctx, "research_events.zero_result", query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get zero result pitches", err)
	}
	defer rows.Close()

	events := []*entities.ResearchEvent{}
	for rows.Next() {
		e := &entities.ResearchEvent{}
		if err := rows.Scan(&e.ID, &e.Pitch, &e.Kind, &e.ResultCount, &e.LatencyMs, &e.Reason, &e.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan research event", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate research events", err)
	}

	return events, nil
}
