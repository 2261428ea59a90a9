package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
)

var progressColumns = []string{
	"run_id", "stage", "seeds_generated", "seeds_processed", "keywords_generated",
	"duplicates_found", "existing_found", "new_collected", "seeds", "keywords", "error",
	"started_at", "updated_at",
}

func TestGenerationProgressAdapter_Save(t *testing.T) {
	client, mock := setupMockClient(t)
	repo := NewGenerationProgressAdapter(client)

	mock.ExpectExec(`INSERT INTO "generation_progress" .* ON CONFLICT \(run_id\) DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(context.Background(), &entities.GenerationProgress{
		RunID:          "run-1",
		Stage:          entities.StageGeneratingKeywords,
		SeedsGenerated: 12,
		Seeds:          []string{"dog walking"},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerationProgressAdapter_SaveRequiresRunID(t *testing.T) {
	client, _ := setupMockClient(t)
	repo := NewGenerationProgressAdapter(client)

	err := repo.Save(context.Background(), &entities.GenerationProgress{})

	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
}

func TestGenerationProgressAdapter_Get(t *testing.T) {
	client, mock := setupMockClient(t)
	repo := NewGenerationProgressAdapter(client)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM "generation_progress" WHERE \("run_id" = 'run-1'\)`).
		WillReturnRows(sqlmock.NewRows(progressColumns).AddRow(
			"run-1", "generating-keywords", 12, 3, 40, 5, 0, 9,
			[]byte(`["seed a","seed b"]`), []byte(`["k1","k2"]`), "", started, started.Add(time.Minute),
		))

	p, err := repo.Get(context.Background(), "run-1")

	require.NoError(t, err)
	assert.Equal(t, entities.StageGeneratingKeywords, p.Stage)
	assert.Equal(t, 3, p.SeedsProcessed)
	assert.Equal(t, []string{"seed a", "seed b"}, p.Seeds)
	assert.Equal(t, []string{"k1", "k2"}, p.Keywords)
	assert.Equal(t, started, p.StartedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerationProgressAdapter_GetNotFound(t *testing.T) {
	client, mock := setupMockClient(t)
	repo := NewGenerationProgressAdapter(client)

	mock.ExpectQuery(`SELECT .* FROM "generation_progress"`).
		WillReturnRows(sqlmock.NewRows(progressColumns))

	_, err := repo.Get(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRunNotFound))
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
}
