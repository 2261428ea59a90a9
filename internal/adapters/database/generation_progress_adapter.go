package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/repositories"
	"github.com/zatekoja/keywordscout/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
)

const generationProgressTable = "generation_progress"

// GenerationProgressAdapter implements GenerationProgressRepository
type GenerationProgressAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewGenerationProgressAdapter creates a new progress checkpoint adapter
func NewGenerationProgressAdapter(client *postgres.Client) repositories.GenerationProgressRepository {
	return &GenerationProgressAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Save writes the checkpoint, replacing any earlier one for the run
func (a *GenerationProgressAdapter) Save(ctx context.Context, progress *entities.GenerationProgress) error {
	if progress == nil || progress.RunID == "" {
		return apperrors.NewValidationError("progress with a run id is required")
	}
	if progress.UpdatedAt.IsZero() {
		progress.UpdatedAt = time.Now()
	}
	if progress.StartedAt.IsZero() {
		progress.StartedAt = progress.UpdatedAt
	}

	seeds, err := json.Marshal(nonNilStrings(progress.Seeds))
	if err != nil {
		return apperrors.NewInternalError("failed to encode seeds", err)
	}
	keywords, err := json.Marshal(nonNilStrings(progress.Keywords))
	if err != nil {
		return apperrors.NewInternalError("failed to encode keywords", err)
	}

	record := goqu.Record{
		"run_id":             progress.RunID,
		"stage":              string(progress.Stage),
		"seeds_generated":    progress.SeedsGenerated,
		"seeds_processed":    progress.SeedsProcessed,
		"keywords_generated": progress.KeywordsGenerated,
		"duplicates_found":   progress.DuplicatesFound,
		"existing_found":     progress.ExistingFound,
		"new_collected":      progress.NewCollected,
		"seeds":              string(seeds),
		"keywords":           string(keywords),
		"error":              progress.Error,
		"started_at":         progress.StartedAt,
		"updated_at":         progress.UpdatedAt,
	}

	update := goqu.Record{}
	for col := range record {
		if col == "run_id" || col == "started_at" {
			continue
		}
		update[col] = goqu.L("EXCLUDED." + col)
	}

	query, args, err := a.db.Insert(generationProgressTable).
		Rows(record).
		OnConflict(goqu.DoUpdate("run_id", update)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build progress upsert", err)
	}

	if _, err := a.client.Exec(ctx, "generation_progress.save", query, args...); err != nil {
		return apperrors.NewInternalError("failed to save progress", err)
	}
	return nil
}

// Get loads the latest checkpoint of a run
func (a *GenerationProgressAdapter) Get(ctx context.Context, runID string) (*entities.GenerationProgress, error) {
	query, args, err := a.db.Select(
		"run_id", "stage",
		"seeds_generated", "seeds_processed", "keywords_generated",
		"duplicates_found", "existing_found", "new_collected",
		"seeds", "keywords", "error", "started_at", "updated_at",
	).
		From(generationProgressTable).
		Where(goqu.Ex{"run_id": runID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build progress query", err)
	}

	p := &entities.GenerationProgress{}
	var stage string
	var seedsRaw, keywordsRaw []byte
	err = a.client.QueryRow(ctx, "generation_progress.get", query, args...).Scan(
		&p.RunID,
		&stage,
		&p.SeedsGenerated,
		&p.SeedsProcessed,
		&p.KeywordsGenerated,
		&p.DuplicatesFound,
		&p.ExistingFound,
		&p.NewCollected,
		&seedsRaw,
		&keywordsRaw,
		&p.Error,
		&p.StartedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperrors.AppError{
			Type:    apperrors.ErrorTypeNotFound,
			Message: fmt.Sprintf("research run %s not found", runID),
			Err:     apperrors.ErrRunNotFound,
		}
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get progress", err)
	}

	p.Stage = entities.GenerationStage(stage)
	if len(seedsRaw) > 0 {
		if err := json.Unmarshal(seedsRaw, &p.Seeds); err != nil {
			return nil, apperrors.NewInternalError("failed to decode seeds", err)
		}
	}
	if len(keywordsRaw) > 0 {
		if err := json.Unmarshal(keywordsRaw, &p.Keywords); err != nil {
			return nil, apperrors.NewInternalError("failed to decode keywords", err)
		}
	}
	return p, nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
